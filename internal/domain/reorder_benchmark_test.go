package domain

import (
	"strconv"
	"testing"
)

func BenchmarkReorder(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(strconv.Itoa(size), func(b *testing.B) {
			tasks := make([]Task, size)
			for i := range tasks {
				tasks[i] = Task{ID: strconv.Itoa(i), Order: i + 1}
			}
			active := tasks[0].ID
			over := tasks[size-1].ID
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				Reorder(tasks, active, over)
			}
		})
	}
}

func BenchmarkSnapshotSorted(b *testing.B) {
	snap := make(Snapshot, 1000)
	for i := 0; i < 1000; i++ {
		id := strconv.Itoa(i)
		snap[id] = Task{ID: id, Order: i + 1}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap.Sorted()
	}
}
