package auth

import "errors"

var (
	// ErrCancelled is returned when the context ends before a flow resolves.
	ErrCancelled        = errors.New("login cancelled")
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrLoginFailed      = errors.New("login failed")
	ErrRestoreFailed    = errors.New("session restore failed")
	// ErrSuperseded is wrapped with ErrCancelled when a newer Login takes over.
	ErrSuperseded = errors.New("superseded by a newer login")
)
