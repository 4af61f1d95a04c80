package domain

import "time"

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionEventType identifica el tipo de notificacion de sesion.
type SessionEventType string

const SessionSignedOut SessionEventType = "signed_out"

type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID string           `json:"session_id"`
	At        time.Time        `json:"at"`
}
