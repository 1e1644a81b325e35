package domain

import "sort"

// Task represents a single item in the shared list.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Done      bool   `json:"done,omitempty"`
	Order     int    `json:"order"`
	UpdatedAt int64  `json:"updatedAt"`
	UpdatedBy string `json:"updatedBy,omitempty"`
}

// Snapshot is the full list document keyed by task ID. The remote copy is
// always the authoritative latest state; local copies are caches of it.
type Snapshot map[string]Task

// Sorted returns the snapshot's tasks ascending by order. Ties break on ID
// so the result is stable across clients.
func (s Snapshot) Sorted() []Task {
	tasks := make([]Task, 0, len(s))
	for _, t := range s {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// MaxOrder returns the highest order value in the snapshot, 0 when empty.
func (s Snapshot) MaxOrder() int {
	max := 0
	for _, t := range s {
		if t.Order > max {
			max = t.Order
		}
	}
	return max
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, t := range s {
		out[id] = t
	}
	return out
}

// SnapshotOf builds a snapshot from a task slice, keyed by ID.
func SnapshotOf(tasks []Task) Snapshot {
	s := make(Snapshot, len(tasks))
	for _, t := range tasks {
		s[t.ID] = t
	}
	return s
}
