package apperrors

import (
	"errors"
	"net/http"
)

// Failure taxonomy shared by the bookings service and the messaging gateway.
// Services wrap these with context via fmt.Errorf("%w: ...") and handlers
// match with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAlreadyPaid       = errors.New("already paid")
	ErrDuplicateIdentity = errors.New("username or email already in use")
)

// Status maps a taxonomy error to its HTTP status code. Unknown errors are
// treated as internal.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, ErrDuplicateIdentity):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
