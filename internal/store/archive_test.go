package store

import (
	"testing"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

func TestDecodeRevisionEntity(t *testing.T) {
	data := []byte(`{"PartitionKey":"list:shared","RowKey":"0000000001700000000","UpdatedBy":"c1","Snapshot":"{\"a\":{\"id\":\"a\",\"text\":\"x\",\"order\":1,\"updatedAt\":0}}"}`)
	ev, err := decodeRevisionEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ListKey != "list:shared" || ev.UpdatedBy != "c1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.At != 1700000000 {
		t.Fatalf("unexpected timestamp: %d", ev.At)
	}
	if len(ev.Snapshot) != 1 || ev.Snapshot["a"].Text != "x" {
		t.Fatalf("unexpected snapshot: %#v", ev.Snapshot)
	}
}

func TestDecodeRevisionEntityEmptySnapshot(t *testing.T) {
	data := []byte(`{"PartitionKey":"list:shared","RowKey":"0000000000000000001","UpdatedBy":"","Snapshot":""}`)
	ev, err := decodeRevisionEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Snapshot == nil || len(ev.Snapshot) != 0 {
		t.Fatalf("expected empty snapshot, got %#v", ev.Snapshot)
	}
}

func TestRevisionRowKeySortsChronologically(t *testing.T) {
	a := revisionRowKey(999)
	b := revisionRowKey(1000)
	if !(a < b) {
		t.Fatalf("row keys do not sort by time: %q vs %q", a, b)
	}
}

func TestDecodeSnapshotMalformed(t *testing.T) {
	snap, err := DecodeSnapshot([]byte("{oops"))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if snap == nil || len(snap) != 0 {
		t.Fatalf("expected empty snapshot alongside error, got %#v", snap)
	}

	snap, err = DecodeSnapshot(nil)
	if err != nil {
		t.Fatalf("nil payload should not error: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("expected empty snapshot, got %#v", snap)
	}
}

func TestEncodeDecodeSnapshot(t *testing.T) {
	in := domain.Snapshot{"a": {ID: "a", Text: "t", Order: 1, UpdatedAt: 42, UpdatedBy: "c"}}
	data, err := EncodeSnapshot(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["a"] != in["a"] {
		t.Fatalf("round trip mismatch: %#v", out)
	}
}
