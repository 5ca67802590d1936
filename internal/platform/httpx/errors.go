// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for handlers.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps handler errors to problem responses. The client-facing
// text is msg; when empty the status text is used.
func RespondError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, msg)
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, msg)
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, msg)
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, msg)
	default:
		Problem(w, http.StatusInternalServerError, "")
	}
}
