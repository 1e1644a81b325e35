package api

import (
	"bytes"
	"errors"

	"github.com/bytedance/sonic"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

const putTasksMaxSize = 256 * 1024 // 256 KiB

// decodeTasksBody accepts both write shapes: the task array clients send
// and the {id: Task} mapping the store holds natively.
func decodeTasksBody(body []byte) (domain.Snapshot, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	if trimmed[0] == '[' {
		var tasks []domain.Task
		if err := unmarshalStrict(trimmed, &tasks); err != nil {
			return nil, err
		}
		return domain.SnapshotOf(tasks), nil
	}
	var snap domain.Snapshot
	if err := unmarshalStrict(trimmed, &snap); err != nil {
		return nil, err
	}
	if snap == nil {
		snap = domain.Snapshot{}
	}
	return snap, nil
}

func unmarshalStrict(data []byte, v any) error {
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
