package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"keepsake/internal/domain"
	"keepsake/internal/repository"
)

var ErrSubmissionNotConfigured = errors.New("submission service not configured")

// SubmissionService valida y guarda los mensajes de los visitantes.
type SubmissionService struct {
	logger *zap.Logger
	repo   repository.MessageRepository
}

func NewSubmissionService(logger *zap.Logger, repo repository.MessageRepository) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{logger: logger, repo: repo}
}

// Submit guarda un mensaje. senderName viene del flujo y no se valida aqui.
// Cada llamada hace exactamente una insercion; no hay reintentos.
func (s *SubmissionService) Submit(ctx context.Context, senderName, content string) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrSubmissionNotConfigured
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, ErrEmptyContent
	}

	msg, err := s.repo.Create(ctx, senderName, content)
	if err != nil {
		s.logger.Warn("message insert failed", zap.Error(err), zap.String("sender_name", senderName))
		return domain.Message{}, &StoreUnavailableError{Err: err}
	}

	s.logger.Info("message stored", zap.String("message_id", msg.ID))
	return msg, nil
}
