package domain

import (
	"errors"
	"fmt"
)

// ErrCorrupt marks a persisted collection that could not be decoded into a
// valid record sequence.
var ErrCorrupt = errors.New("collection corrupt")

// ValidationError reports malformed, missing or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// NotFoundError is returned when an operation targets an id absent from the collection.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Collection, e.ID)
}

// StorageError wraps a durable read or write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	if e.Err == nil {
		return e.Op + ": storage failure"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e StorageError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// IsStorage reports whether err carries a StorageError.
func IsStorage(err error) bool {
	var target StorageError
	return errors.As(err, &target)
}
