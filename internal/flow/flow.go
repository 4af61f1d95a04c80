// Package flow modela la progresion del visitante: nombre, sobre y carta.
//
// Transition es una funcion pura; quien guarda el estado decide como
// serializar las transiciones concurrentes.
package flow

import (
	"errors"
	"strings"
)

type Stage string

const (
	StageName     Stage = "name"
	StageEnvelope Stage = "envelope"
	StageLetter   Stage = "letter"
)

var ErrEmptyName = errors.New("name is required")

// Valid reporta si s es una etapa conocida.
func (s Stage) Valid() bool {
	switch s {
	case StageName, StageEnvelope, StageLetter:
		return true
	}
	return false
}

// State es el estado de un visitante. RecipientName solo se asigna al pasar
// de name a envelope.
type State struct {
	Stage         Stage  `json:"stage"`
	RecipientName string `json:"recipient_name,omitempty"`
}

// Initial devuelve el estado de arranque.
func Initial() State {
	return State{Stage: StageName}
}

// CanLeaveMessage es verdadero solo cuando la carta ya esta abierta.
func (s State) CanLeaveMessage() bool {
	return s.Stage == StageLetter
}

// Event es una accion del visitante.
type Event interface {
	// From es la etapa en la que el evento tiene efecto.
	From() Stage
}

type SubmitName struct {
	Name string
}

func (SubmitName) From() Stage { return StageName }

type OpenEnvelope struct{}

func (OpenEnvelope) From() Stage { return StageEnvelope }

// Transition aplica ev sobre s. Un evento que no corresponde a la etapa actual
// no tiene efecto y devuelve changed=false. Un nombre vacio devuelve
// ErrEmptyName sin modificar el estado.
func Transition(s State, ev Event) (next State, changed bool, err error) {
	if ev == nil || s.Stage != ev.From() {
		return s, false, nil
	}

	switch e := ev.(type) {
	case SubmitName:
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return s, false, ErrEmptyName
		}
		return State{Stage: StageEnvelope, RecipientName: name}, true, nil
	case OpenEnvelope:
		return State{Stage: StageLetter, RecipientName: s.RecipientName}, true, nil
	}
	return s, false, nil
}
