// Package storage defines the blob store the file lifecycle talks to.
// Implementations live in the aws package (S3 and R2) and here (Memory).
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a key doesn't exist in the store
var ErrNotFound = errors.New("blob not found")

type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Blob is a key addressed object store
type Blob interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// List returns at most limit objects whose keys start with prefix, in key
	// order. A limit of 0 lists everything.
	List(ctx context.Context, prefix string, limit int) ([]Object, error)
}
