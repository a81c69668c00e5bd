package types

import "errors"

// Caller-visible error taxonomy
var (
	// ErrInvalidInput marks an empty or malformed request payload. Rejected
	// before any storage or embedding call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDependency marks an unavailable collaborator (storage or embedding
	// service) where the failure is fatal to the operation.
	ErrDependency = errors.New("dependency unavailable")

	// Hit validation errors
	ErrInvalidSegmentID = errors.New("invalid segment ID")
	ErrInvalidScore     = errors.New("score must be between 0 and 1")
	ErrMissingReasons   = errors.New("hit must carry at least one reason")
)
