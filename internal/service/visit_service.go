package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"keepsake/internal/domain"
	"keepsake/internal/flow"
	"keepsake/internal/letter"
)

// VisitService lleva el flujo nombre, sobre y carta de cada visitante y solo
// deja escribir mensajes cuando la carta esta abierta.
type VisitService struct {
	logger      *zap.Logger
	store       VisitStore
	letter      *letter.Letter
	submissions *SubmissionService
}

func NewVisitService(logger *zap.Logger, store VisitStore, l *letter.Letter, submissions *SubmissionService) *VisitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryVisitStore(0)
	}
	if l == nil {
		l = letter.New(nil)
	}
	return &VisitService{
		logger:      logger,
		store:       store,
		letter:      l,
		submissions: submissions,
	}
}

// Start abre una visita nueva en la etapa name.
func (s *VisitService) Start(ctx context.Context) (domain.Visit, error) {
	visit := domain.Visit{
		ID:        uuid.NewString(),
		State:     flow.Initial(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, visit); err != nil {
		s.logger.Warn("visit create failed", zap.Error(err))
		return domain.Visit{}, visitStoreError(err)
	}
	return visit, nil
}

func (s *VisitService) Get(ctx context.Context, id string) (domain.Visit, error) {
	visit, ok, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Warn("visit lookup failed", zap.Error(err), zap.String("visit_id", id))
		return domain.Visit{}, visitStoreError(err)
	}
	if !ok {
		return domain.Visit{}, ErrVisitNotFound
	}
	return visit, nil
}

// SubmitName fija el nombre del destinatario y pasa al sobre.
func (s *VisitService) SubmitName(ctx context.Context, id, name string) (domain.Visit, error) {
	return s.apply(ctx, id, flow.SubmitName{Name: name})
}

// Open abre el sobre. Abrirlo de nuevo no cambia nada.
func (s *VisitService) Open(ctx context.Context, id string) (domain.Visit, error) {
	return s.apply(ctx, id, flow.OpenEnvelope{})
}

// Letter devuelve la pagina pedida, dirigida al nombre de la visita.
func (s *VisitService) Letter(ctx context.Context, id string, page int) (letter.View, error) {
	visit, err := s.Get(ctx, id)
	if err != nil {
		return letter.View{}, err
	}
	if visit.State.Stage != flow.StageLetter {
		return letter.View{}, ErrLetterNotAvailable
	}
	view, err := s.letter.Page(visit.State.RecipientName, page)
	if err != nil {
		return letter.View{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return view, nil
}

// LeaveMessage guarda un mensaje firmado con el nombre de la visita.
func (s *VisitService) LeaveMessage(ctx context.Context, id, content string) (domain.Message, error) {
	visit, err := s.Get(ctx, id)
	if err != nil {
		return domain.Message{}, err
	}
	if !visit.State.CanLeaveMessage() {
		return domain.Message{}, ErrMessageNotAvailable
	}
	return s.submissions.Submit(ctx, visit.State.RecipientName, content)
}

func (s *VisitService) apply(ctx context.Context, id string, ev flow.Event) (domain.Visit, error) {
	visit, err := s.Get(ctx, id)
	if err != nil {
		return domain.Visit{}, err
	}

	next, changed, err := flow.Transition(visit.State, ev)
	if err != nil {
		return visit, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !changed {
		return visit, nil
	}

	swapped, err := s.store.CompareAndSwap(ctx, id, visit.State.Stage, next)
	if err != nil {
		if errors.Is(err, ErrVisitNotFound) {
			return domain.Visit{}, ErrVisitNotFound
		}
		s.logger.Warn("visit transition failed", zap.Error(err), zap.String("visit_id", id))
		return domain.Visit{}, visitStoreError(err)
	}
	if !swapped {
		// Otra peticion avanzo primero; su estado es el que vale.
		return s.Get(ctx, id)
	}

	s.logger.Info("visit advanced",
		zap.String("visit_id", id),
		zap.String("from", string(visit.State.Stage)),
		zap.String("to", string(next.Stage)),
	)
	visit.State = next
	return visit, nil
}

func visitStoreError(err error) error {
	return fmt.Errorf("%w: visit store: %v", ErrStoreUnavailable, err)
}
