package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_Read(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "ap_biology.txt"), []byte("COURSE FRAMEWORK\n"), 0644)
	require.NoError(t, err)

	store := NewFSStore(dir)

	text, err := store.Read("ap_biology.txt")
	require.NoError(t, err)
	assert.Equal(t, "COURSE FRAMEWORK\n", text)
}

func TestFSStore_ReadMissing(t *testing.T) {
	store := NewFSStore(t.TempDir())

	_, err := store.Read("nope.txt")
	require.Error(t, err)

	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Equal(t, "nope.txt", notFound.ID)
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	store := NewFSStore(t.TempDir())

	for _, id := range []string{"", "../secret.txt", "a/b.txt", `a\b.txt`} {
		_, err := store.Read(id)
		assert.Error(t, err, "id %q should be rejected", id)
	}
}
