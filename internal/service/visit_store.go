package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"keepsake/internal/domain"
	"keepsake/internal/flow"
)

// VisitStore guarda el estado del flujo de cada visita. No es durable: una
// visita expirada se comporta como inexistente.
type VisitStore interface {
	Create(ctx context.Context, visit domain.Visit) error
	Get(ctx context.Context, id string) (domain.Visit, bool, error)
	// CompareAndSwap reemplaza el estado solo si la etapa actual es expected.
	// Una visita inexistente devuelve ErrVisitNotFound.
	CompareAndSwap(ctx context.Context, id string, expected flow.Stage, next flow.State) (bool, error)
}

type memoryVisitStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryVisit
}

type memoryVisit struct {
	visit     domain.Visit
	expiresAt time.Time
}

func NewMemoryVisitStore(ttl time.Duration) VisitStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &memoryVisitStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]memoryVisit),
	}
}

func (s *memoryVisitStore) Create(_ context.Context, visit domain.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[visit.ID] = memoryVisit{visit: visit, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *memoryVisitStore) Get(_ context.Context, id string) (domain.Visit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.liveLocked(id)
	if !ok {
		return domain.Visit{}, false, nil
	}
	return item.visit, true, nil
}

func (s *memoryVisitStore) CompareAndSwap(_ context.Context, id string, expected flow.Stage, next flow.State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.liveLocked(id)
	if !ok {
		return false, ErrVisitNotFound
	}
	if item.visit.State.Stage != expected {
		return false, nil
	}
	item.visit.State = next
	item.expiresAt = s.now().Add(s.ttl)
	s.items[id] = item
	return true, nil
}

func (s *memoryVisitStore) liveLocked(id string) (memoryVisit, bool) {
	item, ok := s.items[id]
	if !ok {
		return memoryVisit{}, false
	}
	if s.now().After(item.expiresAt) {
		delete(s.items, id)
		return memoryVisit{}, false
	}
	return item, true
}

const redisVisitCreateScript = `
redis.call("HSET", KEYS[1], "stage", ARGV[1], "recipient", ARGV[2], "created_at", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`

const redisVisitCASScript = `
local current = redis.call("HGET", KEYS[1], "stage")
if not current then
  return -1
end
if current ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "stage", ARGV[2], "recipient", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`

type redisHashClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

type redisVisitStore struct {
	client redisHashClient
	ttl    time.Duration
	prefix string
}

func NewRedisVisitStore(client *redis.Client, ttl time.Duration) VisitStore {
	if client == nil {
		return nil
	}
	return newRedisVisitStore(client, ttl)
}

func newRedisVisitStore(client redisHashClient, ttl time.Duration) *redisVisitStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &redisVisitStore{client: client, ttl: ttl, prefix: "visit:"}
}

func (s *redisVisitStore) Create(ctx context.Context, visit domain.Visit) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Eval(ctx, redisVisitCreateScript, []string{s.prefix + visit.ID},
		string(visit.State.Stage),
		visit.State.RecipientName,
		visit.CreatedAt.UnixMilli(),
		s.ttl.Milliseconds(),
	).Err()
}

func (s *redisVisitStore) Get(ctx context.Context, id string) (domain.Visit, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	fields, err := s.client.HGetAll(ctx, s.prefix+id).Result()
	if err != nil {
		return domain.Visit{}, false, err
	}
	if len(fields) == 0 {
		return domain.Visit{}, false, nil
	}
	visit := domain.Visit{
		ID: id,
		State: flow.State{
			Stage:         flow.Stage(fields["stage"]),
			RecipientName: fields["recipient"],
		},
	}
	if !visit.State.Stage.Valid() {
		return domain.Visit{}, false, fmt.Errorf("visit %s: unknown stage %q", id, fields["stage"])
	}
	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		visit.CreatedAt = time.UnixMilli(ms).UTC()
	}
	return visit, true, nil
}

func (s *redisVisitStore) CompareAndSwap(ctx context.Context, id string, expected flow.Stage, next flow.State) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	res, err := s.client.Eval(ctx, redisVisitCASScript, []string{s.prefix + id},
		string(expected),
		string(next.Stage),
		next.RecipientName,
		s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	switch res {
	case -1:
		return false, ErrVisitNotFound
	case 1:
		return true, nil
	}
	return false, nil
}
