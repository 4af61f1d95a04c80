package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"keepsake/internal/domain"
)

// SessionStore guarda las sesiones activas. Revocar una sesion la invalida
// aunque sus tokens sigan siendo criptograficamente validos.
type SessionStore interface {
	Store(ctx context.Context, session domain.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (domain.Session, bool, error)
	Revoke(ctx context.Context, id string) error
}

type memorySessionStore struct {
	mu    sync.Mutex
	items map[string]memorySession
}

type memorySession struct {
	session   domain.Session
	expiresAt time.Time
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		items: make(map[string]memorySession),
	}
}

func (s *memorySessionStore) Store(_ context.Context, session domain.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(session.ID) == "" {
		return nil
	}
	s.items[session.ID] = memorySession{session: session, expiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, id string) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return domain.Session{}, false, nil
	}
	if time.Now().UTC().After(item.expiresAt) {
		delete(s.items, id)
		return domain.Session{}, false, nil
	}
	return item.session, true, nil
}

func (s *memorySessionStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

type redisKVClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client redisKVClient
	prefix string
}

func NewRedisSessionStore(client *redis.Client) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client: client,
		prefix: "auth:session:",
	}
}

func (s *redisSessionStore) Store(ctx context.Context, session domain.Session, ttl time.Duration) error {
	id := strings.TrimSpace(session.ID)
	if id == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+id, payload, ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (domain.Session, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Session{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, false, err
	}
	return session, true, nil
}

func (s *redisSessionStore) Revoke(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+id).Err()
}
