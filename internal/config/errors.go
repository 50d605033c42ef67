package config

import "errors"

// Configuration validation errors returned by Config.Validate. Callers match
// them with errors.Is.
var (
	// ErrMissingSelector is returned when a traversal level has no selector
	// or scope.
	ErrMissingSelector = errors.New("missing selector: every level needs a selector and a scope")

	// ErrInvalidTimeout is returned when a level timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSettle is returned when a settle delay is negative. Use 0
	// for no delay.
	ErrInvalidSettle = errors.New("invalid settle delay: must be non-negative")

	// ErrInvalidFormat is returned for an output format other than json,
	// markdown or table.
	ErrInvalidFormat = errors.New("invalid format: must be json, markdown or table")

	// ErrUnknownProvider is returned for an annotation provider other than
	// claude or openai.
	ErrUnknownProvider = errors.New("unknown annotation provider: must be claude or openai")
)
