package domain

// Reorder moves the task identified by activeID to the position currently
// occupied by overID, preserving the relative order of all other tasks, and
// renumbers every task to its 1-based position in the result. Old order
// values are discarded entirely.
//
// The input slice is never mutated. When activeID equals overID, or either
// ID is not present, the input is returned unchanged.
func Reorder(tasks []Task, activeID, overID string) []Task {
	if activeID == overID {
		return tasks
	}
	oldIndex, newIndex := -1, -1
	for i, t := range tasks {
		switch t.ID {
		case activeID:
			oldIndex = i
		case overID:
			newIndex = i
		}
	}
	if oldIndex < 0 || newIndex < 0 {
		return tasks
	}

	out := make([]Task, 0, len(tasks))
	out = append(out, tasks[:oldIndex]...)
	out = append(out, tasks[oldIndex+1:]...)
	moved := tasks[oldIndex]
	out = append(out[:newIndex], append([]Task{moved}, out[newIndex:]...)...)

	for i := range out {
		out[i].Order = i + 1
	}
	return out
}
