// Package credstore provides durable storage for identities and the
// references to the artifacts they own.
package credstore

import (
	"context"
	"errors"

	"github.com/spherical-ai/doc-converter/internal/domain"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// Store is the credential store contract. Implementations must enforce email
// uniqueness regardless of how the collection is represented.
type Store interface {
	// Create adds a new identity. Returns ErrConflict when the email exists.
	Create(ctx context.Context, email, passwordHash string) (*domain.Identity, error)

	// FindByEmail returns ErrNotFound when no identity has the email.
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)

	// FindByID returns ErrNotFound when no identity has the id.
	FindByID(ctx context.Context, id string) (*domain.Identity, error)

	// AppendArtifact appends ref to the identity's artifact list.
	AppendArtifact(ctx context.Context, identityID string, ref domain.ArtifactRef) error

	// RemoveArtifact removes an artifact reference from the identity's list.
	// Returns ErrNotFound when either the identity or the reference is absent.
	RemoveArtifact(ctx context.Context, identityID, artifactID string) error

	// ArtifactIDs returns every artifact id referenced by any identity.
	ArtifactIDs(ctx context.Context) (map[string]struct{}, error)

	Close() error
}
