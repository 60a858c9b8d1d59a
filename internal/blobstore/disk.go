package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DirPermsDefault  = 0o750
	FilePermsDefault = 0o640

	zstdSuffix = ".zst"
)

// DiskStore keeps one file per blob under a root directory. Compressed blobs
// carry a .zst suffix so plain and compressed files can coexist after the
// compression setting changes.
type DiskStore struct {
	root        string
	compression Compression
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string, compression Compression) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob directory is required")
	}
	if err := os.MkdirAll(root, DirPermsDefault); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	if compression == "" {
		compression = CompressionNone
	}
	return &DiskStore{root: filepath.Clean(root), compression: compression}, nil
}

// Put writes data atomically under id.
func (s *DiskStore) Put(ctx context.Context, id string, data []byte) error {
	if err := validateID(id); err != nil {
		return err
	}

	name := id
	payload := data
	if s.compression == CompressionZstd {
		compressed, err := compressZstd(data)
		if err != nil {
			return err
		}
		name += zstdSuffix
		payload = compressed
	}

	tmp, err := os.CreateTemp(s.root, ".blob-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Chmod(tmpName, FilePermsDefault); err != nil {
		return fmt.Errorf("chmod blob: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("rename blob: %w", err)
	}
	return nil
}

// Get reads the blob, decompressing it if it was stored compressed.
func (s *DiskStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := validateID(id); err != nil {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.root, id+zstdSuffix))
	if err == nil {
		return decompressZstd(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read blob: %w", err)
	}

	data, err = os.ReadFile(filepath.Join(s.root, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Delete removes every stored encoding of the blob.
func (s *DiskStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return ErrNotFound
	}

	removed := false
	for _, name := range []string{id, id + zstdSuffix} {
		err := os.Remove(filepath.Join(s.root, name))
		if err == nil {
			removed = true
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove blob: %w", err)
		}
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// List returns every blob in the root directory. Size is the on-disk size.
func (s *DiskStore) List(ctx context.Context) ([]BlobInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read blob directory: %w", err)
	}

	infos := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), zstdSuffix)
		if validateID(id) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat blob: %w", err)
		}
		infos = append(infos, BlobInfo{ID: id, Size: info.Size(), CreatedAt: info.ModTime()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Close is a no-op for the disk store.
func (s *DiskStore) Close() error {
	return nil
}
