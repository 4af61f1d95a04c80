package domain

import "time"

// Message es un mensaje dejado por un visitante al final de la carta.
type Message struct {
	ID         string    `json:"id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
