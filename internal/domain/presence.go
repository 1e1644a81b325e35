package domain

// DragPresence is a transient broadcast describing a drag in progress:
// which item a session is dragging and which item it currently hovers.
// A single shared slot holds at most one record globally; concurrent drags
// from different sessions overwrite one another (last write wins).
type DragPresence struct {
	ItemID    string `json:"itemId"`
	OverID    string `json:"overId,omitempty"`
	SessionID string `json:"sessionId"`
}
