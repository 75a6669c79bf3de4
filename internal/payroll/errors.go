package payroll

import "errors"

// Engine errors
var (
	// Entry errors
	ErrMalformedEntry = errors.New("malformed entry")

	// Planning errors
	ErrInvalidGeometry = errors.New("invalid page geometry")
	ErrUnexpectedRow   = errors.New("row kind not allowed in planner input")

	// Spelling errors
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrAmountTooLarge      = errors.New("amount too large to spell")
)
