// Package errdefs defines the error taxonomy shared by the store, the hub
// and the HTTP layer. Handlers map each class to a status code; everything
// else wraps one of the sentinels so callers can use errors.Is.
package errdefs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthentication covers missing, expired or unresolvable credentials.
	ErrAuthentication = errors.New("authentication required")
	// ErrAuthorization covers actors operating on conversations they are
	// not a participant of.
	ErrAuthorization = errors.New("not authorized")
	// ErrNotFound covers unknown conversations, users and messages.
	ErrNotFound = errors.New("not found")
	// ErrValidation covers malformed requests.
	ErrValidation = errors.New("invalid request")
)

// Authenticationf wraps ErrAuthentication with a formatted detail message.
func Authenticationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrAuthentication)...)
}

// Authorizationf wraps ErrAuthorization with a formatted detail message.
func Authorizationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrAuthorization)...)
}

// NotFoundf wraps ErrNotFound with a formatted detail message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Validationf wraps ErrValidation with a formatted detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// HTTPStatus maps an error to the HTTP status the API layer should emit.
// Unclassified errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
