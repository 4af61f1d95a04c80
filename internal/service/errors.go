package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrEmptyContent        = fmt.Errorf("%w: message content is required", ErrValidation)
	ErrStoreUnavailable    = errors.New("message store unavailable")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrAuthUnavailable     = errors.New("auth provider unavailable")
	ErrVisitNotFound       = errors.New("visit not found")
	ErrMessageNotAvailable = errors.New("messages can only be left once the letter is open")
	ErrLetterNotAvailable  = errors.New("letter is not open yet")
)

// StoreUnavailableError conserva el diagnostico del proveedor de almacenamiento.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("message store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func (e *StoreUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// DeleteError se reporta por fila; no afecta al resto de la lista.
type DeleteError struct {
	ID  string
	Err error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete message %s: %v", e.ID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }
