package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

// Archive persists one entity per list revision in Azure Table storage,
// partitioned by list key. It backs the bootstrap path and keeps a durable
// history the Redis document does not provide.
type Archive struct {
	table *aztables.Client
}

// NewArchive creates an Archive over the given table.
func NewArchive(connStr, table string) (*Archive, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Archive{table: svc.NewClient(table)}, nil
}

// revisionRowKey pads the timestamp so row keys sort lexicographically in
// chronological order.
func revisionRowKey(at int64) string {
	return fmt.Sprintf("%019d", at)
}

// SaveRevision upserts one revision entity. The snapshot is stored as a
// JSON blob; table storage is an archive here, not a query surface.
func (a *Archive) SaveRevision(ctx context.Context, ev domain.RevisionEvent) error {
	snap, err := json.Marshal(ev.Snapshot)
	if err != nil {
		return err
	}
	ent := map[string]any{
		"PartitionKey": ev.ListKey,
		"RowKey":       revisionRowKey(ev.At),
		"UpdatedBy":    ev.UpdatedBy,
		"Snapshot":     string(snap),
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = a.table.UpsertEntity(ctx, payload, nil)
	return err
}

type revisionEntity struct {
	aztables.Entity
	UpdatedBy string `json:"UpdatedBy"`
	Snapshot  string `json:"Snapshot"`
}

func decodeRevisionEntity(data []byte) (domain.RevisionEvent, error) {
	var ent revisionEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.RevisionEvent{}, err
	}
	var snap domain.Snapshot
	if ent.Snapshot != "" {
		if err := json.Unmarshal([]byte(ent.Snapshot), &snap); err != nil {
			return domain.RevisionEvent{}, err
		}
	}
	if snap == nil {
		snap = domain.Snapshot{}
	}
	var at int64
	fmt.Sscanf(ent.RowKey, "%d", &at)
	return domain.RevisionEvent{
		ListKey:   ent.PartitionKey,
		UpdatedBy: ent.UpdatedBy,
		At:        at,
		Snapshot:  snap,
	}, nil
}

// LatestRevision returns the most recent archived revision for listKey, or
// false when the partition is empty.
func (a *Archive) LatestRevision(ctx context.Context, listKey string) (domain.RevisionEvent, bool, error) {
	filter := "PartitionKey eq '" + listKey + "'"
	pager := a.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var latest domain.RevisionEvent
	found := false
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return domain.RevisionEvent{}, false, err
		}
		for _, e := range resp.Entities {
			ev, err := decodeRevisionEntity(e)
			if err != nil {
				return domain.RevisionEvent{}, false, err
			}
			if !found || ev.At > latest.At {
				latest = ev
				found = true
			}
		}
	}
	return latest, found, nil
}
