// Package docstore provides read access to source course description
// documents by identifier.
package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store resolves a document identifier to its raw text contents.
type Store interface {
	// Read returns the full text of the document with the given id.
	Read(id string) (string, error)
}

// NotFoundError indicates the store has no document with the requested id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.ID)
}

// FSStore serves documents from a directory on disk. A document id maps
// to a file name inside the root directory; ids containing path
// separators or traversal segments are rejected.
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at the given directory.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

func (s *FSStore) Read(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid document id: %q", id)
	}

	path := filepath.Join(s.root, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{ID: id}
		}
		return "", fmt.Errorf("failed to read document %s: %w", id, err)
	}

	return string(data), nil
}
