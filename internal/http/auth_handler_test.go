package http

import (
	"context"
	"net/http"
	"testing"
)

func TestAuthHandlerLogin_Success(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.users.CreateAdmin(context.Background(), "admin@example.com", "correct horse"); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	rec := performRequest(app.router, http.MethodPost, "/auth/login", map[string]string{
		"email":    "admin@example.com",
		"password": "correct horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		Tokens struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	decodeBody(t, rec, &body)
	if body.User.Email != "admin@example.com" || body.Tokens.AccessToken == "" || body.Tokens.RefreshToken == "" {
		t.Fatalf("unexpected login body %s", rec.Body.String())
	}
}

func TestAuthHandlerLogin_Errors(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.users.CreateAdmin(context.Background(), "admin@example.com", "correct horse"); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	rec := performRequest(app.router, http.MethodPost, "/auth/login", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid request: expected status 400, got %d", rec.Code)
	}

	bad := map[string]string{"email": "admin@example.com", "password": "wrong password"}
	for i := 0; i < 3; i++ {
		rec = performRequest(app.router, http.MethodPost, "/auth/login", bad)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected status 401, got %d", i, rec.Code)
		}
	}
	rec = performRequest(app.router, http.MethodPost, "/auth/login", bad)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
}

func TestAuthHandlerRefreshAndLogout(t *testing.T) {
	app := newTestApp(t)
	_, pair := app.login(t, "admin@example.com", true)

	rec := performRequest(app.router, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected status 200, got %d", rec.Code)
	}

	rec = performAuthedRequest(app.router, http.MethodPost, "/auth/logout", pair.AccessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected status 204, got %d", rec.Code)
	}

	rec = performRequest(app.router, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected status 401, got %d", rec.Code)
	}
	rec = performAuthedRequest(app.router, http.MethodPost, "/auth/logout", pair.AccessToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("second logout: expected status 401, got %d", rec.Code)
	}
}

func TestAuthHandlerLogout_MissingToken(t *testing.T) {
	app := newTestApp(t)

	rec := performRequest(app.router, http.MethodPost, "/auth/logout", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}
