package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Read when the named resource has never been written
var ErrNotExist = errors.New("resource does not exist")

// Backend stores named text resources
type Backend interface {
	// Read returns the resource content, or ErrNotExist
	Read(ctx context.Context, name string) ([]byte, error)

	// Write replaces the resource content
	Write(ctx context.Context, name string, data []byte) error

	// Close releases any resources held by the backend
	Close() error
}
