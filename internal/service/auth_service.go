package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"keepsake/internal/domain"
	"keepsake/internal/repository"
)

// AuthService es el proveedor de identidad: inicia y cierra sesiones, resuelve
// tokens y consulta roles.
type AuthService struct {
	logger   *zap.Logger
	users    *UserService
	roles    repository.RoleRepository
	jwt      *JWTService
	sessions SessionStore
	events   SessionEvents
	limiter  LoginLimiter
}

func NewAuthService(
	logger *zap.Logger,
	users *UserService,
	roles repository.RoleRepository,
	jwtSvc *JWTService,
	sessions SessionStore,
	events SessionEvents,
	limiter LoginLimiter,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	if events == nil {
		events = NewMemorySessionEvents()
	}
	return &AuthService{
		logger:   logger,
		users:    users,
		roles:    roles,
		jwt:      jwtSvc,
		sessions: sessions,
		events:   events,
		limiter:  limiter,
	}
}

// SignIn valida credenciales y abre una sesion nueva.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (domain.Session, TokenPair, error) {
	key := normalizeEmail(email)
	if s.limiter != nil && !s.limiter.Allow(key) {
		return domain.Session{}, TokenPair{}, ErrRateLimited
	}

	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		if s.limiter != nil && errors.Is(err, ErrInvalidCredentials) {
			s.limiter.Fail(key)
		}
		return domain.Session{}, TokenPair{}, err
	}
	if s.limiter != nil {
		s.limiter.Reset(key)
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.jwt.RefreshTTL()),
	}
	pair, err := s.jwt.GeneratePair(session)
	if err != nil {
		return domain.Session{}, TokenPair{}, err
	}
	if err := s.sessions.Store(ctx, session, s.jwt.RefreshTTL()); err != nil {
		return domain.Session{}, TokenPair{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	s.logger.Info("session started", zap.String("user_id", user.ID), zap.String("session_id", session.ID))
	return session, pair, nil
}

// CurrentSession resuelve la sesion asociada a un access token. Un token
// invalido o una sesion revocada devuelven ErrUnauthenticated.
func (s *AuthService) CurrentSession(ctx context.Context, accessToken string) (domain.Session, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return domain.Session{}, ErrUnauthenticated
	}
	return s.activeSession(ctx, claims.SessionID)
}

func (s *AuthService) activeSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, ok, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if !ok {
		return domain.Session{}, ErrUnauthenticated
	}
	return session, nil
}

func (s *AuthService) RoleMembership(ctx context.Context, userID, role string) ([]string, error) {
	if s.roles == nil {
		return nil, ErrAuthUnavailable
	}
	roles, err := s.roles.ListRoles(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	return roles, nil
}

// Refresh emite un par nuevo para una sesion que sigue activa.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrUnauthenticated
	}
	session, err := s.activeSession(ctx, claims.SessionID)
	if err != nil {
		return TokenPair{}, err
	}
	return s.jwt.GeneratePair(session)
}

// SignOut revoca la sesion y avisa a los suscriptores.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	ev := domain.SessionEvent{
		Type:      domain.SessionSignedOut,
		SessionID: sessionID,
		At:        time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("session event publish failed", zap.Error(err), zap.String("session_id", sessionID))
	}
	s.logger.Info("session ended", zap.String("session_id", sessionID))
	return nil
}

func (s *AuthService) SubscribeSessionEvents(sessionID string) *SessionSubscription {
	return s.events.Subscribe(sessionID)
}
