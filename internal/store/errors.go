package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when a bill does not exist.
var ErrNotFound = errors.New("bill not found")

// StatusError is a store failure carrying an HTTP-like status code.
// Its message is the one shown to users, e.g. "Erreur 404".
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Erreur %d", e.Code)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text for a store error.
func Message(err error) string {
	return fmt.Sprintf("Erreur %d", Code(err))
}

// Code maps a store error to an HTTP status code.
func Code(err error) int {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
