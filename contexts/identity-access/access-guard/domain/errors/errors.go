package errors

import "errors"

var (
	ErrInvalidSubject       = errors.New("invalid subject")
	ErrInvalidAttemptPolicy = errors.New("attempt window and limit must be positive")
	ErrTooManyAttempts      = errors.New("too many attempts")
	ErrLoginLocked          = errors.New("login temporarily locked")
	ErrCodeInvalid          = errors.New("verification code invalid")
	ErrCodeExpired          = errors.New("verification code expired or missing")
)

func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSubject):
		return "INVALID_SUBJECT"
	case errors.Is(err, ErrInvalidAttemptPolicy):
		return "INVALID_ATTEMPT_POLICY"
	case errors.Is(err, ErrTooManyAttempts):
		return "TOO_MANY_ATTEMPTS"
	case errors.Is(err, ErrLoginLocked):
		return "LOGIN_LOCKED"
	case errors.Is(err, ErrCodeInvalid):
		return "CODE_INVALID"
	case errors.Is(err, ErrCodeExpired):
		return "CODE_EXPIRED"
	default:
		return "INTERNAL"
	}
}
