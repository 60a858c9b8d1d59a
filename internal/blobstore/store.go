// Package blobstore stores artifact bytes as individually addressable blobs
// named by artifact id.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates no blob exists under the requested id.
var ErrNotFound = errors.New("blob not found")

// Store defines the blob storage interface.
type Store interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]BlobInfo, error)
	Close() error
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	ID        string
	Size      int64
	CreatedAt time.Time
}

// validateID rejects ids that are not UUIDs. Ids become file names and
// redis keys, so nothing else is allowed through.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid blob id %q: %w", id, err)
	}
	return nil
}
