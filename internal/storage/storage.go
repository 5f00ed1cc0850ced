package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// ObjectStore is the boundary to the object-storage backend. It carries no
// business logic; key conventions and metadata schemas belong to the callers.
type ObjectStore interface {
	// Put streams the object to the backend under key. size must be the exact
	// byte count so the client does not buffer the stream.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) error

	// ListByPrefix returns the keys under prefix in backend listing order.
	// An owner with no objects yields an empty slice, not an error.
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)

	// Head fetches the object's last-modified time and user metadata without
	// downloading its content.
	Head(ctx context.Context, key string) (ObjectMeta, error)

	// SignURL returns a time-limited URL granting direct read access to the
	// object at key, valid for exactly expiry from generation.
	SignURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ObjectMeta is the result of a Head call.
type ObjectMeta struct {
	LastModified time.Time
	Metadata     map[string]string
}

// WriteError wraps a backend failure on the write path (Put).
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("storage write %q: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError wraps a backend failure on the read path (list, head, sign-URL).
type ReadError struct {
	Key string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("storage read %q: %v", e.Key, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
