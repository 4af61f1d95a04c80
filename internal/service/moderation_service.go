package service

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"keepsake/internal/domain"
	"keepsake/internal/repository"
)

// ModerationService lista y borra mensajes. Asume que el llamador ya paso por
// AdminGate.
type ModerationService struct {
	logger *zap.Logger
	repo   repository.MessageRepository
}

func NewModerationService(logger *zap.Logger, repo repository.MessageRepository) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationService{logger: logger, repo: repo}
}

// List devuelve todos los mensajes, el mas reciente primero. Nunca devuelve
// nil cuando no hay error.
func (s *ModerationService) List(ctx context.Context) ([]domain.Message, error) {
	msgs, err := s.repo.ListNewestFirst(ctx)
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}
	if msgs == nil {
		return []domain.Message{}, nil
	}
	slices.SortStableFunc(msgs, func(a, b domain.Message) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return msgs, nil
}

// Delete borra un mensaje; borrar uno que ya no existe no es error.
func (s *ModerationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Warn("message delete failed", zap.Error(err), zap.String("message_id", id))
		return &DeleteError{ID: id, Err: err}
	}
	s.logger.Info("message deleted", zap.String("message_id", id))
	return nil
}
