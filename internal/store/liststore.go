// Package store implements the remote side of the sync loop: the shared
// list document and presence slot on Redis (read-subscribe plus whole
// document overwrite), a durable revision archive on Azure Tables, and the
// history queue feeding it.
package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

// ListStore holds the shared list document at a single Redis key and
// notifies subscribers through a pub/sub channel on every overwrite.
type ListStore struct {
	client *redis.Client
	key    string
	logger *log.Logger
}

// NewListStore creates a store for the document at key.
func NewListStore(client *redis.Client, key string, logger *log.Logger) *ListStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &ListStore{client: client, key: key, logger: logger}
}

func (s *ListStore) channel() string {
	return s.key + ":updates"
}

// Save overwrites the whole document and publishes a change notification.
// This is the only write operation: there is no partial update, the last
// full-document write wins.
func (s *ListStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key, data, 0)
		pipe.Publish(ctx, s.channel(), data)
		return nil
	})
	return err
}

// Load fetches the current document. A missing key is the empty list, and a
// malformed payload degrades to the empty list after logging.
func (s *ListStore) Load(ctx context.Context) (domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return domain.Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		s.logger.Errorf("malformed list document at %s, treating as empty: %v", s.key, err)
		return domain.Snapshot{}, nil
	}
	return snap, nil
}

// Subscribe delivers the full document to fn after every change, starting
// with the current state. It blocks until ctx is cancelled and reconnects
// with a short backoff when the pub/sub channel drops.
func (s *ListStore) Subscribe(ctx context.Context, fn func(domain.Snapshot)) {
	for {
		sub := s.client.Subscribe(ctx, s.channel())
		// Wait for the subscription confirmation before the initial fetch,
		// otherwise a write landing in between would go unseen.
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("list subscribe: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if snap, err := s.Load(ctx); err != nil {
			s.logger.Errorf("initial list fetch: %v", err)
		} else {
			fn(snap)
		}
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case _, ok := <-ch:
				if !ok {
					break recv
				}
				snap, err := s.Load(ctx)
				if err != nil {
					s.logger.Errorf("fetch list after update: %v", err)
					continue
				}
				fn(snap)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("list pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
