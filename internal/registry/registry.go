// Package registry keeps each identity's converted artifacts: the bytes in a
// blob store and the references in the identity's own list.
package registry

import (
	"context"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/spherical-ai/doc-converter/internal/blobstore"
	"github.com/spherical-ai/doc-converter/internal/credstore"
	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/observability"
)

// DefaultLocatorPrefix is the route artifacts are served under.
const DefaultLocatorPrefix = "/api/v1/artifacts"

// DefaultMinSweepGrace is the smallest grace period Sweep accepts unless
// WithMinSweepGrace says otherwise.
const DefaultMinSweepGrace = 5 * time.Minute

const (
	derivedExt  = ".csv"
	defaultName = "document"
)

// Registry stores, lists, fetches and deletes artifacts scoped to their owner.
type Registry struct {
	identities    credstore.Store
	blobs         blobstore.Store
	locatorPrefix string
	minSweepGrace time.Duration
	now           func() time.Time
	logger        *observability.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLocatorPrefix sets the route prefix used to build artifact locators.
func WithLocatorPrefix(prefix string) Option {
	return func(r *Registry) {
		r.locatorPrefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithMinSweepGrace sets the smallest grace period Sweep accepts. It must
// cover the longest time a conversion can spend between writing its blob and
// recording its reference.
func WithMinSweepGrace(d time.Duration) Option {
	return func(r *Registry) {
		r.minSweepGrace = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *observability.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry over the given stores.
func New(identities credstore.Store, blobs blobstore.Store, opts ...Option) *Registry {
	r := &Registry{
		identities:    identities,
		blobs:         blobs,
		locatorPrefix: DefaultLocatorPrefix,
		minSweepGrace: DefaultMinSweepGrace,
		now:           time.Now,
		logger:        observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("registry")
	return r
}

// Store writes data under a fresh id and appends the reference to the
// owner's list. The bytes are written first; if the append fails the blob is
// left for Sweep and StorageFailure is returned.
func (r *Registry) Store(ctx context.Context, identityID, originalName string, data []byte) (*domain.ArtifactRef, error) {
	ref := domain.ArtifactRef{
		ID:           uuid.NewString(),
		OriginalName: originalName,
		DerivedName:  DerivedName(originalName),
		CreatedAt:    r.now().UTC(),
		SizeBytes:    int64(len(data)),
		Checksum:     Checksum(data),
	}

	if err := r.blobs.Put(ctx, ref.ID, data); err != nil {
		return nil, domain.StorageFailure("failed to write artifact", err)
	}

	if err := r.identities.AppendArtifact(ctx, identityID, ref); err != nil {
		r.logger.Error().
			Err(err).
			Str("identity_id", identityID).
			Str("artifact_id", ref.ID).
			Msg("Failed to record artifact, blob left orphaned")
		return nil, domain.StorageFailure("failed to record artifact", err)
	}

	r.logger.Info().
		Str("identity_id", identityID).
		Str("artifact_id", ref.ID).
		Int64("size_bytes", ref.SizeBytes).
		Msg("Artifact stored")

	return r.withLocator(ref), nil
}

// List returns the owner's artifacts in creation order.
func (r *Registry) List(ctx context.Context, identityID string) ([]domain.ArtifactRef, error) {
	identity, err := r.owner(ctx, identityID)
	if err != nil {
		return nil, err
	}

	refs := make([]domain.ArtifactRef, 0, len(identity.Artifacts))
	for _, ref := range identity.Artifacts {
		refs = append(refs, *r.withLocator(ref))
	}
	return refs, nil
}

// Describe returns the metadata of one of the owner's artifacts.
func (r *Registry) Describe(ctx context.Context, identityID, artifactID string) (*domain.ArtifactRef, error) {
	identity, err := r.owner(ctx, identityID)
	if err != nil {
		return nil, err
	}

	ref, ok := identity.FindArtifact(artifactID)
	if !ok {
		return nil, domain.NotFound("artifact not found", nil)
	}
	return r.withLocator(ref), nil
}

// Get returns the metadata and bytes of one of the owner's artifacts.
func (r *Registry) Get(ctx context.Context, identityID, artifactID string) (*domain.ArtifactRef, []byte, error) {
	ref, err := r.Describe(ctx, identityID, artifactID)
	if err != nil {
		return nil, nil, err
	}

	data, err := r.blobs.Get(ctx, artifactID)
	if errors.Is(err, blobstore.ErrNotFound) {
		r.logger.Warn().
			Str("identity_id", identityID).
			Str("artifact_id", artifactID).
			Msg("Artifact reference has no blob")
		return nil, nil, domain.NotFound("artifact not found", err)
	}
	if err != nil {
		return nil, nil, domain.StorageFailure("failed to read artifact", err)
	}
	return ref, data, nil
}

// Delete removes one of the owner's artifacts. A missing blob is logged and
// the reference is still removed.
func (r *Registry) Delete(ctx context.Context, identityID, artifactID string) error {
	if _, err := r.Describe(ctx, identityID, artifactID); err != nil {
		return err
	}

	err := r.blobs.Delete(ctx, artifactID)
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		r.logger.Warn().Str("artifact_id", artifactID).Msg("Artifact blob already gone")
	case err != nil:
		return domain.StorageFailure("failed to delete artifact", err)
	}

	err = r.identities.RemoveArtifact(ctx, identityID, artifactID)
	if errors.Is(err, credstore.ErrNotFound) {
		return domain.NotFound("artifact not found", err)
	}
	if err != nil {
		return domain.StorageFailure("failed to remove artifact reference", err)
	}

	r.logger.Info().
		Str("identity_id", identityID).
		Str("artifact_id", artifactID).
		Msg("Artifact deleted")
	return nil
}

func (r *Registry) owner(ctx context.Context, identityID string) (*domain.Identity, error) {
	identity, err := r.identities.FindByID(ctx, identityID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, domain.NotFound("identity not found", err)
	}
	if err != nil {
		return nil, domain.StorageFailure("failed to load identity", err)
	}
	return identity, nil
}

func (r *Registry) withLocator(ref domain.ArtifactRef) *domain.ArtifactRef {
	ref.Locator = r.Locator(ref.ID)
	return &ref
}

// Locator returns the relative download URL for an artifact id.
func (r *Registry) Locator(artifactID string) string {
	return r.locatorPrefix + "/" + artifactID + "/download"
}

// DerivedName replaces the extension of the original file name with .csv.
// Directory components are dropped; an empty name becomes document.csv.
func DerivedName(originalName string) string {
	name := strings.ReplaceAll(strings.TrimSpace(originalName), `\`, "/")
	base := path.Base(name)
	base = strings.TrimSpace(base)
	if base == "." || base == "/" || base == "" {
		return defaultName + derivedExt
	}

	stem := strings.TrimSuffix(base, path.Ext(base))
	if strings.TrimSpace(stem) == "" {
		stem = defaultName
	}
	return stem + derivedExt
}

// Checksum returns the hex BLAKE3 digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
