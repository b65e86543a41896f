// Package storage provides artifact persistence for pipeline stages.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the artifact store every stage reads and writes. Store
// is atomic from a reader's perspective and safe to repeat: a redelivered
// message overwrites the same key with the same content.
type ObjectStore interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
	Store(ctx context.Context, bucket, key string, data []byte, contentType string) error
	EnsureBucket(ctx context.Context, bucket string) error
}
