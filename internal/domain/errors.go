package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means the spot is already claimed by another flow. The
	// caller should look for another spot instead of retrying.
	ErrConflict = errors.New("spot already claimed")
	// ErrInconsistency means stored state contradicts the flow, typically a
	// booking whose spot is not held by it. Not recoverable locally.
	ErrInconsistency     = errors.New("inconsistent reservation state")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
)

// PaymentError carries the provider's decline or failure verbatim.
type PaymentError struct {
	Code    string
	Message string
}

func (e *PaymentError) Error() string {
	if e.Code == "" {
		return "payment failed: " + e.Message
	}
	return fmt.Sprintf("payment failed (%s): %s", e.Code, e.Message)
}

// IsPaymentError reports whether err wraps a *PaymentError.
func IsPaymentError(err error) bool {
	var pe *PaymentError
	return errors.As(err, &pe)
}
