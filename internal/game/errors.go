package game

import "errors"

var (
	// ErrEntityDestroyed is returned when an identity was valid once but
	// has been explicitly deleted. Destroyed identities are never reused.
	ErrEntityDestroyed = errors.New("entity destroyed")

	// ErrCallerGone signals a dispatch whose acting entity reference is
	// stale or deleted. Fatal for that one input, not for the dispatcher.
	ErrCallerGone = errors.New("no active caller")
)
