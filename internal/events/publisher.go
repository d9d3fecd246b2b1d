// Package events publishes sync notifications on Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChannelEmployersSynced receives one message per completed sync.
const ChannelEmployersSynced = "EVENT_EMPLOYERS_SYNCED"

// SyncedEvent is the JSON payload published after a successful sync.
type SyncedEvent struct {
	Type       string    `json:"type"`
	Database   string    `json:"database"`
	Employers  int       `json:"employers"`
	Vacancies  int       `json:"vacancies"`
	DurationMs int64     `json:"durationMs"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Publisher announces completed syncs.
type Publisher interface {
	PublishSynced(ctx context.Context, ev SyncedEvent) error
}

// RedisPublisher publishes on a Redis channel.
type RedisPublisher struct {
	rdb redis.UniversalClient
}

// NewRedisPublisher returns a Publisher backed by rdb.
func NewRedisPublisher(rdb redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// PublishSynced marshals ev and publishes it on ChannelEmployersSynced.
func (p *RedisPublisher) PublishSynced(ctx context.Context, ev SyncedEvent) error {
	ev.Type = ChannelEmployersSynced
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ChannelEmployersSynced, err)
	}
	if err := p.rdb.Publish(ctx, ChannelEmployersSynced, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ChannelEmployersSynced, err)
	}
	return nil
}

// Nop discards every event. Used when no Redis URL is configured.
type Nop struct{}

// PublishSynced does nothing.
func (Nop) PublishSynced(context.Context, SyncedEvent) error { return nil }
