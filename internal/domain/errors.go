package domain

import "github.com/pkg/errors"

// Operation failure taxonomy. Callers classify with errors.Is and decide
// user-facing messaging; the state machine never panics across its boundary.
var (
	// ErrInvalidInput marks non-finite, non-positive or otherwise malformed amounts,
	// rejected before any balance check.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientBalance marks a failed precondition on available, pending
	// or crypto holdings.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBelowMinimum marks an invest amount under the minimum floor.
	ErrBelowMinimum = errors.New("amount below minimum")
)
