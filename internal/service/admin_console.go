package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"keepsake/internal/domain"
)

var ErrConsoleClosed = errors.New("admin console closed")

type ConsoleStatus string

const (
	ConsoleLoading         ConsoleStatus = "loading"
	ConsoleReady           ConsoleStatus = "ready"
	ConsoleEmpty           ConsoleStatus = "empty"
	ConsoleError           ConsoleStatus = "error"
	ConsoleForbidden       ConsoleStatus = "forbidden"
	ConsoleUnauthenticated ConsoleStatus = "unauthenticated"
	ConsoleClosed          ConsoleStatus = "closed"
)

// ConsoleView es una copia del estado de la consola para mostrar.
type ConsoleView struct {
	Status    ConsoleStatus
	Identity  domain.Identity
	Messages  []domain.Message
	Pending   map[string]bool
	RowErrors map[string]error
	Err       error
}

// AdminConsole es la vista de moderacion de una activacion. Mantiene la lista
// en memoria: Refresh la reemplaza entera y Delete quita la fila localmente
// sin volver a leer, asi que la vista puede quedar desfasada si otro
// administrador cambia la tabla.
type AdminConsole struct {
	logger     *zap.Logger
	gate       *AdminGate
	moderation *ModerationService
	token      string
	reauthWait time.Duration

	mu        sync.Mutex
	status    ConsoleStatus
	identity  domain.Identity
	messages  []domain.Message
	pending   map[string]bool
	rowErrors map[string]error
	err       error
	listGen   uint64
	closed    bool
	sub       *SessionSubscription
	done      chan struct{}
	changes   chan struct{}
}

func NewAdminConsole(logger *zap.Logger, gate *AdminGate, moderation *ModerationService, accessToken string) *AdminConsole {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminConsole{
		logger:     logger,
		gate:       gate,
		moderation: moderation,
		token:      accessToken,
		reauthWait: 5 * time.Second,
		status:     ConsoleLoading,
		pending:    make(map[string]bool),
		rowErrors:  make(map[string]error),
		done:       make(chan struct{}),
		changes:    make(chan struct{}, 1),
	}
}

// Changes avisa (sin bloquear) cada vez que cambia la vista.
func (c *AdminConsole) Changes() <-chan struct{} {
	return c.changes
}

func (c *AdminConsole) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// Activate autoriza la sesion, se suscribe a su invalidacion y carga la lista.
func (c *AdminConsole) Activate(ctx context.Context) error {
	identity, err := c.gate.Authorize(ctx, c.token)
	if err == nil && c.subscribe(identity.SessionID) {
		// Un cierre publicado antes de suscribirse no llega por el canal.
		identity, err = c.gate.Authorize(ctx, c.token)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsoleClosed
	}
	if err != nil {
		c.applyAuthFailureLocked(err)
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.identity = identity
	c.status = ConsoleLoading
	c.err = nil
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// subscribe abre la suscripcion a la sesion si aun no existe. Devuelve true
// si la abrio en esta llamada.
func (c *AdminConsole) subscribe(sessionID string) bool {
	c.mu.Lock()
	done := c.closed || c.sub != nil
	c.mu.Unlock()
	if done {
		return false
	}

	sub := c.gate.Subscribe(sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.sub != nil {
		sub.Close()
		return false
	}
	c.sub = sub
	go c.watch(sub)
	return true
}

// Refresh vuelve a pedir la lista completa y reemplaza la actual. Si llega
// una respuesta de un Refresh anterior despues de uno nuevo, se descarta.
func (c *AdminConsole) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.listGen++
	gen := c.listGen
	c.status = ConsoleLoading
	c.mu.Unlock()
	c.notify()

	msgs, err := c.moderation.List(ctx)

	c.mu.Lock()
	defer c.notify()
	defer c.mu.Unlock()
	if c.closed || gen != c.listGen || c.identity.SessionID == "" {
		return nil
	}
	if err != nil {
		c.status = ConsoleError
		c.err = err
		c.logger.Warn("console list failed", zap.Error(err))
		return err
	}
	c.err = nil
	c.messages = msgs
	for id := range c.rowErrors {
		if !lo.ContainsBy(msgs, func(m domain.Message) bool { return m.ID == id }) {
			delete(c.rowErrors, id)
		}
	}
	c.status = statusFor(c.messages)
	return nil
}

// Delete borra un mensaje. Si el almacen acepta, la fila se quita de la lista
// local; si falla, la lista no cambia y el error queda en RowErrors[id].
// Varios Delete pueden correr a la vez.
func (c *AdminConsole) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending[id] = true
	delete(c.rowErrors, id)
	c.mu.Unlock()
	c.notify()

	err := c.moderation.Delete(ctx, id)

	c.mu.Lock()
	defer c.notify()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	delete(c.pending, id)
	if err != nil {
		c.rowErrors[id] = err
		return err
	}
	c.messages = lo.Filter(c.messages, func(m domain.Message, _ int) bool { return m.ID != id })
	if c.status == ConsoleReady {
		c.status = statusFor(c.messages)
	}
	return nil
}

// Logout cierra la sesion en el proveedor y cierra la consola. Las llamadas
// en curso no se cancelan; sus resultados se descartan.
func (c *AdminConsole) Logout(ctx context.Context) error {
	c.mu.Lock()
	sessionID := c.identity.SessionID
	c.mu.Unlock()

	var err error
	if sessionID != "" {
		err = c.gate.SignOut(ctx, sessionID)
	}
	c.Close()
	return err
}

// Close libera la suscripcion. Es seguro llamarlo varias veces.
func (c *AdminConsole) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.status = ConsoleClosed
	c.messages = nil
	c.pending = make(map[string]bool)
	sub := c.sub
	c.sub = nil
	close(c.done)
	c.mu.Unlock()

	sub.Close()
	c.notify()
}

// Snapshot devuelve una copia del estado actual.
func (c *AdminConsole) Snapshot() ConsoleView {
	c.mu.Lock()
	defer c.mu.Unlock()
	view := ConsoleView{
		Status:    c.status,
		Identity:  c.identity,
		Messages:  append([]domain.Message(nil), c.messages...),
		Pending:   make(map[string]bool, len(c.pending)),
		RowErrors: make(map[string]error, len(c.rowErrors)),
		Err:       c.err,
	}
	for k, v := range c.pending {
		view.Pending[k] = v
	}
	for k, v := range c.rowErrors {
		view.RowErrors[k] = v
	}
	return view
}

func (c *AdminConsole) watch(sub *SessionSubscription) {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			c.logger.Info("session event received", zap.String("type", string(ev.Type)), zap.String("session_id", ev.SessionID))
			c.reauthorize()
		}
	}
}

func (c *AdminConsole) reauthorize() {
	ctx, cancel := context.WithTimeout(context.Background(), c.reauthWait)
	defer cancel()

	identity, err := c.gate.Authorize(ctx, c.token)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.applyAuthFailureLocked(err)
	} else {
		c.identity = identity
	}
	c.mu.Unlock()
	c.notify()
}

func (c *AdminConsole) applyAuthFailureLocked(err error) {
	c.err = err
	c.messages = nil
	c.pending = make(map[string]bool)
	c.rowErrors = make(map[string]error)
	c.identity = domain.Identity{}
	c.listGen++
	switch {
	case errors.Is(err, ErrUnauthenticated):
		c.status = ConsoleUnauthenticated
	case errors.Is(err, ErrForbidden):
		c.status = ConsoleForbidden
	default:
		c.status = ConsoleError
	}
}

func (c *AdminConsole) usableLocked() error {
	if c.closed {
		return ErrConsoleClosed
	}
	switch c.status {
	case ConsoleForbidden:
		return ErrForbidden
	case ConsoleUnauthenticated:
		return ErrUnauthenticated
	}
	if c.identity.SessionID == "" {
		return ErrUnauthenticated
	}
	return nil
}

func statusFor(msgs []domain.Message) ConsoleStatus {
	if len(msgs) == 0 {
		return ConsoleEmpty
	}
	return ConsoleReady
}
