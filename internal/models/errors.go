package models

import "errors"

var (
	// ErrNotFound is returned when a book cannot be found in any catalog.
	ErrNotFound = errors.New("book not found")

	// ErrNotIngested is returned when a chat targets a book without a knowledge pack.
	ErrNotIngested = errors.New("book not ingested yet")

	// ErrInvalidInput is returned for missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMetadataMissing is returned when ingestion is requested without metadata.
	ErrMetadataMissing = errors.New("metadata missing")
)

// IsNotFound reports whether err means the book or its pack does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotIngested)
}
