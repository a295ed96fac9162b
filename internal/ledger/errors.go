package ledger

import "errors"

// Shared error taxonomy. Every rejected precondition surfaces one of these;
// handlers map them to HTTP statuses with errors.Is.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateRecord   = errors.New("duplicate record")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrValidation        = errors.New("validation error")
)
