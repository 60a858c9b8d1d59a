package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spherical-ai/doc-converter/internal/domain"
)

// document is the on-disk shape of the identity collection.
type document struct {
	Identities []domain.Identity `json:"identities"`
}

// FileStore keeps the whole identity collection in one JSON document.
//
// Every mutation is load, mutate, persist under the exclusive side of mu, so
// at most one write is in flight and no snapshot can overwrite another
// writer's change. Reads take the shared side and never block each other.
type FileStore struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// NewFileStore creates a file-backed store at path. The parent directory is
// created if needed; the document itself is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credential store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create credential store dir: %w", err)
	}
	return &FileStore{path: path, now: time.Now}, nil
}

// Create adds a new identity.
func (s *FileStore) Create(ctx context.Context, email, passwordHash string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, existing := range doc.Identities {
		if existing.Email == email {
			return nil, ErrConflict
		}
	}

	identity := domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
		Artifacts:    []domain.ArtifactRef{},
	}
	doc.Identities = append(doc.Identities, identity)

	if err := s.persist(doc); err != nil {
		return nil, err
	}
	return cloneIdentity(identity), nil
}

// FindByEmail returns the identity registered under email.
func (s *FileStore) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, identity := range doc.Identities {
		if identity.Email == email {
			return cloneIdentity(identity), nil
		}
	}
	return nil, ErrNotFound
}

// FindByID returns the identity with the given id.
func (s *FileStore) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if i := doc.indexOf(id); i >= 0 {
		return cloneIdentity(doc.Identities[i]), nil
	}
	return nil, ErrNotFound
}

// AppendArtifact appends ref to the identity's list.
func (s *FileStore) AppendArtifact(ctx context.Context, identityID string, ref domain.ArtifactRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	i := doc.indexOf(identityID)
	if i < 0 {
		return ErrNotFound
	}

	ref.Locator = ""
	doc.Identities[i].Artifacts = append(doc.Identities[i].Artifacts, ref)
	return s.persist(doc)
}

// RemoveArtifact drops an artifact reference from the identity's list.
func (s *FileStore) RemoveArtifact(ctx context.Context, identityID, artifactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	i := doc.indexOf(identityID)
	if i < 0 {
		return ErrNotFound
	}

	artifacts := doc.Identities[i].Artifacts
	for j, ref := range artifacts {
		if ref.ID == artifactID {
			doc.Identities[i].Artifacts = append(artifacts[:j:j], artifacts[j+1:]...)
			return s.persist(doc)
		}
	}
	return ErrNotFound
}

// ArtifactIDs returns every referenced artifact id.
func (s *FileStore) ArtifactIDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{})
	for _, identity := range doc.Identities {
		for _, ref := range identity.Artifacts {
			ids[ref.ID] = struct{}{}
		}
	}
	return ids, nil
}

// Close is a no-op; every write is already durable.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential store: %w", err)
	}
	if len(data) == 0 {
		return &document{}, nil
	}

	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode credential store: %w", err)
	}
	return doc, nil
}

// persist writes the full collection to a temp file and renames it over the
// document so readers never observe a partial write.
func (s *FileStore) persist(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".identities-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync credential store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential store: %w", err)
	}
	return nil
}

func (d *document) indexOf(id string) int {
	for i := range d.Identities {
		if d.Identities[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneIdentity(identity domain.Identity) *domain.Identity {
	out := identity
	out.Artifacts = append([]domain.ArtifactRef{}, identity.Artifacts...)
	return &out
}
