package storage

import "errors"

var (
	// ErrNotFound is returned when no record exists for an identity.
	ErrNotFound = errors.New("record not found")

	// ErrPersistence wraps any failure to durably write or delete a record.
	// Callers treat a wrapped ErrPersistence as "the mutation did not happen".
	ErrPersistence = errors.New("persistence failure")
)
