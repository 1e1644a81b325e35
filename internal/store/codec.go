package store

import (
	"github.com/bytedance/sonic"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

// EncodeSnapshot serializes the full list document for storage and fan-out.
func EncodeSnapshot(s domain.Snapshot) ([]byte, error) {
	return sonic.Marshal(s)
}

// DecodeSnapshot parses a stored document. Absent and malformed payloads
// both decode to the empty list: the document is a disposable cache of
// whatever the last writer produced, so a broken payload is not worth
// failing over.
func DecodeSnapshot(data []byte) (domain.Snapshot, error) {
	if len(data) == 0 {
		return domain.Snapshot{}, nil
	}
	var s domain.Snapshot
	if err := sonic.Unmarshal(data, &s); err != nil {
		return domain.Snapshot{}, err
	}
	if s == nil {
		s = domain.Snapshot{}
	}
	return s, nil
}
