package transferorder

import "errors"

// Export errors
var (
	// Request errors
	ErrUnknownKind   = errors.New("unknown transfer order kind")
	ErrUnknownFormat = errors.New("unknown export format")
	ErrInvalidPeriod = errors.New("invalid export period")

	// Data errors
	ErrEmptyResultSet = errors.New("no entries to export for the selected period")

	// Template errors
	ErrTemplateUnavailable = errors.New("template unavailable")

	// Output errors
	ErrWriteFailure = errors.New("failed to write transfer order")
)
