package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/videocom/videocom-share/internal/misc"
)

// DefaultFileName is the credential document name inside the auth directory.
const DefaultFileName = "videocom-share.json"

// FileStore persists the configuration as an indented JSON document on the local filesystem.
// Deleting the file signs the user out.
type FileStore struct {
	*mapStore
	path string
}

// NewFileStore loads the document at path, treating a missing file as an empty store.
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file store: path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("file store: read %s: %w", path, err)
	}
	values, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("file store: parse %s: %w", path, err)
	}
	s := &FileStore{path: filepath.Clean(path)}
	s.mapStore = newMapStore(values, s.write)
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *FileStore) write(next map[string]any, _, _ []string) error {
	misc.LogSavingCredentials(s.path)
	raw, err := encodeDocument(next)
	if err != nil {
		return fmt.Errorf("file store: marshal document: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("file store: create dir failed: %w", err)
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("file store: write temp file: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("file store: rename temp file: %w", err)
	}
	return nil
}
