package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"keepsake/internal/domain"
)

func TestMemorySessionEvents_DeliversToSessionSubscribers(t *testing.T) {
	b := NewMemorySessionEvents().(*memorySessionEvents)
	sub := b.Subscribe("s1")
	other := b.Subscribe("s2")
	defer other.Close()

	ev := domain.SessionEvent{Type: domain.SessionSignedOut, SessionID: "s1", At: time.Now().UTC()}
	if err := b.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-sub.C:
		if got.Type != domain.SessionSignedOut || got.SessionID != "s1" {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event for s1")
	}

	select {
	case got := <-other.C:
		t.Fatalf("s2 must not receive s1 events, got %+v", got)
	default:
	}

	sub.Close()
	sub.Close()
	if n := b.subscribers("s1"); n != 0 {
		t.Fatalf("expected subscription released, got %d", n)
	}
	if _, ok := <-sub.C; ok {
		t.Fatalf("expected channel closed after Close")
	}
}

func TestMemorySessionEvents_PublishWithoutSubscribers(t *testing.T) {
	b := NewMemorySessionEvents()
	if err := b.Publish(context.Background(), domain.SessionEvent{SessionID: "nobody"}); err != nil {
		t.Fatalf("publish without subscribers should succeed, got %v", err)
	}
}

type mockRedisPublisher struct {
	lastChannel string
	lastPayload []byte
	err         error
}

func (m *mockRedisPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.lastChannel = channel
	m.lastPayload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func (m *mockRedisPublisher) Subscribe(_ context.Context, _ ...string) *redis.PubSub {
	return nil
}

func TestRedisSessionEvents_Publish(t *testing.T) {
	mock := &mockRedisPublisher{}
	b := &redisSessionEvents{client: mock, prefix: "auth:session-events:"}

	ev := domain.SessionEvent{Type: domain.SessionSignedOut, SessionID: "s1"}
	if err := b.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if mock.lastChannel != "auth:session-events:s1" {
		t.Fatalf("unexpected channel %q", mock.lastChannel)
	}
	var got domain.SessionEvent
	if err := json.Unmarshal(mock.lastPayload, &got); err != nil || got.Type != domain.SessionSignedOut {
		t.Fatalf("unexpected payload %s (%v)", mock.lastPayload, err)
	}

	mock.lastChannel = ""
	if err := b.Publish(context.Background(), domain.SessionEvent{SessionID: " "}); err != nil || mock.lastChannel != "" {
		t.Fatalf("empty session id must be a no-op")
	}

	mock.err = errors.New("redis down")
	if err := b.Publish(context.Background(), ev); err == nil {
		t.Fatalf("expected publish error")
	}
}
