package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrIdempotencyConflict    = errors.New("idempotency key reused with a different request")
	ErrStorage                = errors.New("storage error")

	ErrItemNotFound  = &notFoundError{entity: "item"}
	ErrOrderNotFound = &notFoundError{entity: "order"}
)

type notFoundError struct {
	entity string
}

func (e *notFoundError) Error() string { return e.entity + " not found" }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// Validationf builds an ErrValidation carrying a human readable reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidStateTransition }

// StorageError wraps a driver failure. The wrapped text must not reach API clients.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
