package store

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/AnnaOlkh/todolist/internal/domain"
)

// PresenceStore holds the single shared drag-presence slot. Writes from
// concurrent sessions clobber each other; the backend's push ordering is
// the only guarantee.
type PresenceStore struct {
	client *redis.Client
	key    string
	logger *log.Logger
}

// NewPresenceStore creates a store for the presence slot at key.
func NewPresenceStore(client *redis.Client, key string, logger *log.Logger) *PresenceStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &PresenceStore{client: client, key: key, logger: logger}
}

func (s *PresenceStore) channel() string {
	return s.key + ":updates"
}

// Publish overwrites the slot with rec and notifies subscribers.
func (s *PresenceStore) Publish(ctx context.Context, rec domain.DragPresence) error {
	data, err := sonic.Marshal(rec)
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

// Clear deletes the slot and notifies subscribers of the absence.
func (s *PresenceStore) Clear(ctx context.Context) error {
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.Publish(ctx, s.channel(), "")
		return nil
	})
	return err
}

// Load fetches the current slot value, nil when the slot is empty or holds
// an unreadable record.
func (s *PresenceStore) Load(ctx context.Context) (*domain.DragPresence, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.DragPresence
	if err := sonic.Unmarshal(data, &rec); err != nil {
		s.logger.Errorf("malformed presence record at %s: %v", s.key, err)
		return nil, nil
	}
	return &rec, nil
}

// Subscribe delivers the slot value to fn on every change; nil means the
// slot was cleared. Blocks until ctx is cancelled, reconnecting with a
// short backoff when the pub/sub channel drops.
func (s *PresenceStore) Subscribe(ctx context.Context, fn func(*domain.DragPresence)) {
	for {
		sub := s.client.Subscribe(ctx, s.channel())
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("presence subscribe: %v", err)
			time.Sleep(time.Second)
			continue
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
				rec, err := s.Load(ctx)
				if err != nil {
					s.logger.Errorf("fetch presence after update: %v", err)
					continue
				}
				fn(rec)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("presence pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
