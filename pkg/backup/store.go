package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps a backup document in a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store for the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backup file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the document. Backups hold link keys, so the file is private.
func (s *FileStore) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Load reads the document.
// Returns nil, nil if the file doesn't exist.
func (s *FileStore) Load() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Clear removes the backup file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
