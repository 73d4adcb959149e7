package auth

import (
	"errors"
	"fmt"
)

// All of these except ErrForbidden surface as 401 with the same message.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("token invalid")

	ErrMissingToken    = fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	ErrSubjectNotFound = fmt.Errorf("%w: subject not found", ErrUnauthenticated)
	ErrSubjectInactive = fmt.Errorf("%w: subject inactive", ErrUnauthenticated)

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingSecret      = errors.New("token secret is not set")
)

// IsUnauthorized reports whether err should be answered with 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrInvalidCredentials)
}

// FailureReason is the label used in logs and metrics for a rejected request.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrSubjectNotFound):
		return "user_not_found"
	case errors.Is(err, ErrSubjectInactive):
		return "user_inactive"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, ErrInvalidCredentials):
		return "bad_credentials"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "unauthenticated"
	}
}
