package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter bloquea una clave (email) tras demasiados inicios de sesion
// fallidos. Un inicio correcto borra el historial de la clave.
type LoginLimiter interface {
	// Allow es falso mientras la clave esta bloqueada.
	Allow(key string) bool
	Fail(key string)
	Reset(key string)
}

type loginAttempts struct {
	failures int
	expires  time.Time
}

type loginLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts map[string]loginAttempts
}

// NewLoginLimiter crea un limitador en memoria.
func NewLoginLimiter(window time.Duration, max int) LoginLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &loginLimiter{
		window:   window,
		max:      max,
		attempts: make(map[string]loginAttempts),
	}
}

func (l *loginLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.attempts[key]
	if !ok {
		return true
	}
	if !time.Now().Before(a.expires) {
		delete(l.attempts, key)
		return true
	}
	return a.failures < l.max
}

// Fail cuenta un fallo. El primero abre la ventana y el que alcanza el maximo
// la reinicia, asi el bloqueo dura una ventana completa.
func (l *loginLimiter) Fail(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	a := l.attempts[key]
	if !now.Before(a.expires) {
		a = loginAttempts{}
	}
	a.failures++
	if a.failures == 1 || a.failures >= l.max {
		a.expires = now.Add(l.window)
	}
	l.attempts[key] = a
}

func (l *loginLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

// KEYS[1] contador de fallos; ARGV[1] maximo. Devuelve los ms de bloqueo
// restantes, 0 si se permite el intento.
const redisLoginLockedScript = `
local failures = tonumber(redis.call("GET", KEYS[1]) or "0")
if failures < tonumber(ARGV[1]) then
  return 0
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  redis.call("DEL", KEYS[1])
  return 0
end
return ttl
`

// KEYS[1] contador de fallos; ARGV[1] ventana en ms; ARGV[2] maximo.
const redisLoginFailScript = `
local failures = redis.call("INCR", KEYS[1])
if failures == 1 or failures >= tonumber(ARGV[2]) then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return failures
`

const redisLoginResetScript = `return redis.call("DEL", KEYS[1])`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisLoginLimiter comparte los bloqueos entre instancias del servicio.
type redisLoginLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

func NewRedisLoginLimiter(client *redis.Client, window time.Duration, max int) LoginLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLoginLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "login:failures:",
	}
}

func (l *redisLoginLimiter) key(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false
	}
	return l.prefix + email, true
}

// Allow deja pasar el intento si redis no responde: la contraseña se sigue
// verificando y un corte de redis no deja fuera a los administradores.
func (l *redisLoginLimiter) Allow(email string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key, ok := l.key(email)
	if !ok {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	lockedMs, err := l.client.Eval(ctx, redisLoginLockedScript, []string{key}, l.max).Int64()
	if err != nil {
		return true
	}
	return lockedMs == 0
}

func (l *redisLoginLimiter) Fail(email string) {
	if l == nil || l.client == nil {
		return
	}
	key, ok := l.key(email)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = l.client.Eval(ctx, redisLoginFailScript, []string{key}, l.window.Milliseconds(), l.max).Err()
}

func (l *redisLoginLimiter) Reset(email string) {
	if l == nil || l.client == nil {
		return
	}
	key, ok := l.key(email)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = l.client.Eval(ctx, redisLoginResetScript, []string{key}).Err()
}
