package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

// HistoryQueue decouples the serving path from the durable archive: the
// server enqueues a revision event per write, the archiver drains the queue
// into table storage at its own pace.
type HistoryQueue struct {
	queue *azqueue.QueueClient
}

// NewHistoryQueue creates a client for the named queue.
func NewHistoryQueue(connStr, queueName string) (*HistoryQueue, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, err
	}
	return &HistoryQueue{queue: q}, nil
}

// Enqueue submits one revision event.
func (h *HistoryQueue) Enqueue(ctx context.Context, ev domain.RevisionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = h.queue.EnqueueMessage(ctx, string(data), nil)
	return err
}

// HistoryMessage is a dequeued revision event plus the receipt needed to
// delete it after processing.
type HistoryMessage struct {
	ID         string
	PopReceipt string
	Event      domain.RevisionEvent
}

// Next dequeues at most one message. It returns (nil, nil) when the queue
// is empty and skips unparseable messages after deleting them so they do
// not wedge the queue.
func (h *HistoryQueue) Next(ctx context.Context) (*HistoryMessage, error) {
	resp, err := h.queue.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	msg := resp.Messages[0]
	var ev domain.RevisionEvent
	if err := json.Unmarshal([]byte(*msg.MessageText), &ev); err != nil {
		_, _ = h.queue.DeleteMessage(ctx, *msg.MessageID, *msg.PopReceipt, nil)
		return nil, nil
	}
	return &HistoryMessage{ID: *msg.MessageID, PopReceipt: *msg.PopReceipt, Event: ev}, nil
}

// Delete acknowledges a processed message.
func (h *HistoryQueue) Delete(ctx context.Context, msg *HistoryMessage) error {
	_, err := h.queue.DeleteMessage(ctx, msg.ID, msg.PopReceipt, nil)
	return err
}
