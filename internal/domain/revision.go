package domain

// RevisionEvent records one whole-document overwrite for the durable
// history archive. It is enqueued on the write path and drained into table
// storage by the archiver.
type RevisionEvent struct {
	ListKey   string   `json:"listKey"`
	UpdatedBy string   `json:"updatedBy,omitempty"`
	At        int64    `json:"at"`
	Snapshot  Snapshot `json:"snapshot"`
}
