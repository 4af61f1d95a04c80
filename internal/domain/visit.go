package domain

import (
	"time"

	"keepsake/internal/flow"
)

// Visit agrupa el estado del flujo de un visitante.
type Visit struct {
	ID        string     `json:"id"`
	State     flow.State `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
}
