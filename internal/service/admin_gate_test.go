package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestAdminGateAuthorize(t *testing.T) {
	f := newAuthFixture(t, nil)
	gate := NewAdminGate(zap.NewNop(), f.auth)
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		if _, err := gate.Authorize(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("valid session without admin role", func(t *testing.T) {
		_, pair := f.signIn(t, "guest@example.com", false)
		if _, err := gate.Authorize(ctx, pair.AccessToken); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("admin session", func(t *testing.T) {
		session, pair := f.signIn(t, "admin@example.com", true)
		identity, err := gate.Authorize(ctx, pair.AccessToken)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if identity.UserID != session.UserID || identity.SessionID != session.ID || identity.Email != "admin@example.com" {
			t.Fatalf("unexpected identity %+v", identity)
		}
	})
}

func TestAdminGateAuthorize_NoCaching(t *testing.T) {
	f := newAuthFixture(t, nil)
	gate := NewAdminGate(zap.NewNop(), f.auth)
	ctx := context.Background()
	session, pair := f.signIn(t, "admin@example.com", true)

	if _, err := gate.Authorize(ctx, pair.AccessToken); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	before := f.roles.calls

	f.roles.revoke(session.UserID, "admin")
	if _, err := gate.Authorize(ctx, pair.AccessToken); !errors.Is(err, ErrForbidden) {
		t.Fatalf("role removal must be seen on the next activation, got %v", err)
	}
	if f.roles.calls != before+1 {
		t.Fatalf("expected a fresh role lookup, got %d calls", f.roles.calls-before)
	}

	if err := f.auth.SignOut(ctx, session.ID); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, err := gate.Authorize(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after sign out, got %v", err)
	}
}

func TestAdminGateAuthorize_RoleLookupFailure(t *testing.T) {
	f := newAuthFixture(t, nil)
	gate := NewAdminGate(zap.NewNop(), f.auth)
	_, pair := f.signIn(t, "admin@example.com", true)
	f.roles.listErr = errors.New("db down")

	_, err := gate.Authorize(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrAuthUnavailable) {
		t.Fatalf("expected ErrAuthUnavailable, got %v", err)
	}
	if errors.Is(err, ErrForbidden) || err == nil {
		t.Fatalf("lookup failure must not be treated as a decision")
	}
}
