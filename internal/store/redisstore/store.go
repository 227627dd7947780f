package redisstore

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/parley-chat/parley/internal/chat"
)

const eventChannel = "chat:events"

// Store wraps the Redis connection and carries committed chat deltas across
// server instances over pub/sub.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// Publish implements chat.Bus.
func (s *Store) Publish(ctx context.Context, ev chat.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, eventChannel, body).Err()
}

// Bridge subscribes to the event channel and feeds every delta into the
// local hub until ctx is cancelled. Run it on each instance; Redis preserves
// per-publisher order, so per-key ordering survives the hop.
func (s *Store) Bridge(ctx context.Context, hub *chat.Hub) error {
	sub := s.rdb.Subscribe(ctx, eventChannel)
	defer sub.Close()

	// force the subscription before callers start writing
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev chat.Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				log.Printf("[redisstore] bad event payload: %v", err)
				continue
			}
			hub.Publish(ev)
		}
	}
}
