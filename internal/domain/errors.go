package domain

import "errors"

// Error taxonomy shared by every component. Realtime handlers treat all of
// them as silent no-ops; the REST surface maps them to status codes.
var (
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("state conflict")
)
