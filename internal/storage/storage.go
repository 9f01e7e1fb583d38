package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned by Retrieve when no object is stored under the name.
var ErrNotFound = errors.New("object not found")

// ErrInvalidName is returned for names that could escape the storage root.
var ErrInvalidName = errors.New("invalid object name")

// Storage defines the interface for uploaded image blobs. Objects are
// addressed by a flat file name such as "3f2a...c1.jpg".
type Storage interface {
	// Store writes data under name and returns the number of bytes written.
	Store(ctx context.Context, name string, data io.Reader) (int64, error)

	// Retrieve returns a ReadCloser for the stored data.
	Retrieve(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes the stored data. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error

	// Exists checks whether data is stored under name.
	Exists(ctx context.Context, name string) (bool, error)
}

// ValidName reports whether name is a single path element with no traversal.
func ValidName(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
