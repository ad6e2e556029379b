package subscription

import (
	"errors"
	"fmt"
)

// Reported verification failures. None of them are fatal; callers show them
// to the user and the flow can be retried.
var (
	ErrNotFound           = errors.New("no verification request for this email")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrCodeMismatch       = errors.New("verification code does not match")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrAuthFailure        = errors.New("email or password is incorrect")
	ErrNotVerified        = errors.New("email not verified")
	ErrPasswordAlreadySet = errors.New("password already set")
	ErrValidation         = errors.New("invalid input")

	// ErrDelivery means the state change was committed but the code email
	// could not be sent.
	ErrDelivery = errors.New("verification email not delivered")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsReported reports whether err is one of the verification failures a user
// should see, as opposed to a store or infrastructure failure.
func IsReported(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrAlreadyVerified, ErrCodeMismatch, ErrCodeExpired,
		ErrAuthFailure, ErrNotVerified, ErrPasswordAlreadySet, ErrValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
