package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		if os.Getenv("TEST_REQUIRE_REDIS") != "" {
			t.Fatal("Test redis not available:", err)
		}
		t.Skip("Test redis not available:", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisPublisher_PublishSynced(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := rdb.Subscribe(ctx, ChannelEmployersSynced)
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	finished := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	p := NewRedisPublisher(rdb)
	require.NoError(t, p.PublishSynced(ctx, SyncedEvent{
		Database:   "headhunter",
		Employers:  10,
		Vacancies:  321,
		DurationMs: 1500,
		FinishedAt: finished,
	}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got SyncedEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, SyncedEvent{
		Type:       ChannelEmployersSynced,
		Database:   "headhunter",
		Employers:  10,
		Vacancies:  321,
		DurationMs: 1500,
		FinishedAt: finished,
	}, got)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishSynced(context.Background(), SyncedEvent{}))
}
