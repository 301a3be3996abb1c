// Package ddpipeerr defines the error taxonomy shared across the routing
// core: sentinel values wrapped with context via fmt.Errorf and matched
// with errors.Is/errors.As by callers that need to branch on kind.
package ddpipeerr

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", ErrX) to attach
// context while keeping errors.Is(err, ErrX) working.
var (
	// ErrInvalidConfiguration means configuration validation failed.
	// Fatal to Load and Reload.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInitialization means a participant or internal entity could not
	// be constructed. Fatal to the affected bridge.
	ErrInitialization = errors.New("initialization failure")

	// ErrOutOfMemory means the payload pool is exhausted. Fatal to the
	// current sample only; the sample is dropped.
	ErrOutOfMemory = errors.New("payload pool out of memory")

	// ErrRecoverableWrite means a writer reported a transient failure.
	// The sample is dropped and the loop continues.
	ErrRecoverableWrite = errors.New("recoverable write error")

	// ErrFatalWrite means a writer is unusable. The track whose write
	// failed removes it; other tracks of the same bridge that hold the
	// same writer are not changed. The error does not propagate upward.
	ErrFatalWrite = errors.New("fatal write error")

	// ErrUnknownEndpoint means a discovery removal referenced a GUID
	// that was never added. Non-fatal, logged as a warning.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrInvalidRoute means a route names a participant absent from the
	// provided participant index.
	ErrInvalidRoute = errors.New("invalid route")
)
