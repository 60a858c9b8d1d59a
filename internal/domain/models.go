package domain

import (
	"time"
)

// Identity is a registered account, keyed uniquely by email.
type Identity struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"passwordHash"`
	CreatedAt    time.Time     `json:"createdAt"`
	Artifacts    []ArtifactRef `json:"artifacts"`
}

// Summary returns the caller-visible view of the identity.
func (i *Identity) Summary() IdentitySummary {
	return IdentitySummary{
		ID:            i.ID,
		Email:         i.Email,
		CreatedAt:     i.CreatedAt,
		ArtifactCount: len(i.Artifacts),
	}
}

// FindArtifact returns the artifact with the given id from the identity's own
// list. Lookups through this method are how ownership is enforced.
func (i *Identity) FindArtifact(artifactID string) (ArtifactRef, bool) {
	for _, ref := range i.Artifacts {
		if ref.ID == artifactID {
			return ref, true
		}
	}
	return ArtifactRef{}, false
}

// IdentitySummary is what registration and login hand back.
type IdentitySummary struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"createdAt"`
	ArtifactCount int       `json:"artifactCount"`
}

// ArtifactRef describes one converted artifact owned by an identity.
type ArtifactRef struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	DerivedName  string    `json:"derivedName"`
	CreatedAt    time.Time `json:"createdAt"`
	SizeBytes    int64     `json:"sizeBytes"`
	Checksum     string    `json:"checksum,omitempty"`

	// Locator is the relative retrieval URL. It is computed on the way out
	// and never persisted.
	Locator string `json:"locator,omitempty"`
}
