package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"keepsake/internal/domain"
)

// SessionEvents reparte notificaciones de invalidacion de sesion.
type SessionEvents interface {
	Publish(ctx context.Context, ev domain.SessionEvent) error
	Subscribe(sessionID string) *SessionSubscription
}

// SessionSubscription entrega eventos de una sesion hasta que se cierra.
// Quien la crea es responsable de llamar a Close.
type SessionSubscription struct {
	C <-chan domain.SessionEvent

	once    sync.Once
	release func()
}

func (s *SessionSubscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

type memorySessionEvents struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.SessionEvent]struct{}
}

func NewMemorySessionEvents() SessionEvents {
	return &memorySessionEvents{
		subs: make(map[string]map[chan domain.SessionEvent]struct{}),
	}
}

func (b *memorySessionEvents) Publish(_ context.Context, ev domain.SessionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *memorySessionEvents) Subscribe(sessionID string) *SessionSubscription {
	ch := make(chan domain.SessionEvent, 4)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan domain.SessionEvent]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	return &SessionSubscription{
		C: ch,
		release: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[sessionID], ch)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			close(ch)
		},
	}
}

// subscribers devuelve cuantas suscripciones hay abiertas para sessionID.
func (b *memorySessionEvents) subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

type redisPubSubClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// redisSessionEvents usa pub/sub para que un cierre de sesion llegue a todas
// las instancias del servicio.
type redisSessionEvents struct {
	client redisPubSubClient
	prefix string
	logger *zap.Logger
}

func NewRedisSessionEvents(client *redis.Client, logger *zap.Logger) SessionEvents {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisSessionEvents{
		client: client,
		prefix: "auth:session-events:",
		logger: logger,
	}
}

func (b *redisSessionEvents) Publish(ctx context.Context, ev domain.SessionEvent) error {
	if strings.TrimSpace(ev.SessionID) == "" {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return b.client.Publish(ctx, b.prefix+ev.SessionID, payload).Err()
}

func (b *redisSessionEvents) Subscribe(sessionID string) *SessionSubscription {
	out := make(chan domain.SessionEvent, 4)
	ps := b.client.Subscribe(context.Background(), b.prefix+sessionID)

	// Espera la confirmacion para no perder un cierre inmediato.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if _, err := ps.Receive(ctx); err != nil {
		b.logger.Warn("session events subscribe not confirmed", zap.Error(err), zap.String("session_id", sessionID))
	}
	cancel()

	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var ev domain.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warn("invalid session event payload", zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()

	return &SessionSubscription{
		C: out,
		release: func() {
			if err := ps.Close(); err != nil {
				b.logger.Warn("session events unsubscribe failed", zap.Error(err))
			}
		},
	}
}
