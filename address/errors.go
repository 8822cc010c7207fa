package address

import "errors"

// Typed failures returned by the store and the transition methods.
// Callers branch with errors.Is; services translate these into HTTP
// envelopes, the core never formats user-facing text
var (
	// ErrValidation flags malformed or missing required input
	ErrValidation = errors.New("invalid input")
	// ErrInvalidTransition flags a state machine guard violation
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrStaleVersion flags an optimistic concurrency mismatch on mutate
	ErrStaleVersion = errors.New("stale address version")
	// ErrNotFound flags an unknown address or product id
	ErrNotFound = errors.New("not found")
)
