package domain

import "time"

// RoleAdmin es la unica etiqueta de rol que habilita la consola de moderacion.
const RoleAdmin = "admin"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity es el resultado de una autorizacion exitosa.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
}
