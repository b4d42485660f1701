package models

import "errors"

// The caller-facing error taxonomy. Handlers map these onto HTTP statuses;
// everything else is treated as an aborted transaction.
var (
	// ErrValidation covers bad input rejected before any mutation is
	// attempted: non-positive amounts, sender equal to recipient,
	// unknown enum values.
	ErrValidation = errors.New("validation failed")

	// ErrBelowMinimum is returned when a withdrawal is under the
	// configured minimum. It is a validation failure.
	ErrBelowMinimum = errors.New("amount below withdrawal minimum")

	// ErrInsufficientFunds is returned when a conditional debit finds
	// the balance smaller than the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyResolved is returned when the status precondition fails
	// at commit time: the record was resolved by a concurrent or earlier
	// call. The caller must not retry the same logical action.
	ErrAlreadyResolved = errors.New("already resolved")

	// ErrNotAuthorized is returned when the resolver of a transfer is
	// not its recipient.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrTransactionAborted wraps infrastructure failures of the atomic
	// unit. Nothing was written; the caller may retry from scratch.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrNotFound is returned for unknown account, request, transfer or
	// loan identifiers.
	ErrNotFound = errors.New("not found")
)
