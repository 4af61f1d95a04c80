package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"keepsake/internal/domain"
)

// AuthProvider es lo que AdminGate necesita del proveedor de identidad.
type AuthProvider interface {
	CurrentSession(ctx context.Context, accessToken string) (domain.Session, error)
	RoleMembership(ctx context.Context, userID, role string) ([]string, error)
	SubscribeSessionEvents(sessionID string) *SessionSubscription
	SignOut(ctx context.Context, sessionID string) error
}

// AdminGate decide si una sesion puede usar la consola de moderacion. No
// guarda resultados: cada llamada a Authorize vuelve a consultar al proveedor.
type AdminGate struct {
	logger   *zap.Logger
	provider AuthProvider
}

func NewAdminGate(logger *zap.Logger, provider AuthProvider) *AdminGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminGate{logger: logger, provider: provider}
}

// Authorize devuelve la identidad si la sesion existe y tiene el rol admin.
// Sin sesion devuelve ErrUnauthenticated; sin rol, ErrForbidden.
func (g *AdminGate) Authorize(ctx context.Context, accessToken string) (domain.Identity, error) {
	session, err := g.provider.CurrentSession(ctx, accessToken)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return domain.Identity{}, ErrUnauthenticated
		}
		g.logger.Warn("session lookup failed", zap.Error(err))
		return domain.Identity{}, err
	}

	roles, err := g.provider.RoleMembership(ctx, session.UserID, domain.RoleAdmin)
	if err != nil {
		g.logger.Warn("role lookup failed", zap.Error(err), zap.String("user_id", session.UserID))
		return domain.Identity{}, err
	}
	if len(roles) == 0 {
		g.logger.Info("admin access denied", zap.String("user_id", session.UserID))
		return domain.Identity{}, ErrForbidden
	}

	return domain.Identity{
		UserID:    session.UserID,
		Email:     session.Email,
		SessionID: session.ID,
	}, nil
}

// Subscribe abre una suscripcion a la invalidacion de la sesion; el llamador
// debe cerrarla.
func (g *AdminGate) Subscribe(sessionID string) *SessionSubscription {
	return g.provider.SubscribeSessionEvents(sessionID)
}

func (g *AdminGate) SignOut(ctx context.Context, sessionID string) error {
	return g.provider.SignOut(ctx, sessionID)
}
