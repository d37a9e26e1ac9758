package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("not found")

// BlobStore keeps the original bytes of uploaded documents.
type BlobStore interface {
	Save(r io.Reader) (id string, size int64, err error)
	Open(id string) (io.ReadCloser, error)
	Delete(id string) error
}

// LocalStore implements BlobStore using the local filesystem. Each upload is
// written to a file named by a random UUID.
type LocalStore struct {
	uploadDir string
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(uploadDir string) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	return &LocalStore{uploadDir: uploadDir}, nil
}

// Save writes r to a new file and returns its id and size.
func (s *LocalStore) Save(r io.Reader) (string, int64, error) {
	id := uuid.New().String()
	path := filepath.Join(s.uploadDir, id)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("writing file: %w", err)
	}

	return id, size, nil
}

// Open returns a reader for a stored file.
func (s *LocalStore) Open(id string) (io.ReadCloser, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return f, nil
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (s *LocalStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// path maps an id to its file, rejecting anything that is not a UUID.
func (s *LocalStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	return filepath.Join(s.uploadDir, id), nil
}
