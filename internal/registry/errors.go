package registry

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested user or environment does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateID matches any DuplicateIDError through errors.Is.
var ErrDuplicateID = errors.New("duplicate id")

// DuplicateIDError is returned when adding an entity whose ID is already registered.
type DuplicateIDError struct {
	Kind string // "user" or "environment"
	ID   int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s with id %d already exists", e.Kind, e.ID)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }

// ValidationError represents a rejected ID or name.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ParseError reports a malformed record in a persisted resource.
type ParseError struct {
	Resource string
	Line     int
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Resource, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
