package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the reservation and lifecycle engines. Denied and
// Expired are normal outcomes surfaced to the buyer ("pick again");
// NotFound and InvalidTransition indicate caller bugs and are logged;
// Conflict means a concurrent writer won and the operation may be retried
// once.
var (
	// ErrDenied - the number is unavailable (held by someone else or sold)
	ErrDenied = errors.New("number unavailable")

	// ErrNotFound - unknown draw, number or ticket
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition - operation attempted from a state that forbids it
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrConflict - a concurrent writer won the race
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrExpired - the hold lapsed before it was confirmed
	ErrExpired = errors.New("hold expired")
)

// HTTPStatus maps an error to the HTTP status code the API layer responds
// with. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrDenied):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// IsExpected reports whether err is a normal business outcome rather than
// an integration error. Expected errors are surfaced to the end user and
// not logged at error level.
func IsExpected(err error) bool {
	return errors.Is(err, ErrDenied) || errors.Is(err, ErrExpired)
}
