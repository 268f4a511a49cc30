package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusConstants(t *testing.T) {
	// Verify status constants are defined and distinct
	statuses := []string{
		RunStatusRunning,
		RunStatusCompleted,
		RunStatusFailed,
		RunStatusAborted,
	}

	seen := make(map[string]bool)
	for _, status := range statuses {
		assert.NotEmpty(t, status, "status constant should not be empty")
		assert.False(t, seen[status], "status constant should be unique: %s", status)
		seen[status] = true
	}
}

func TestCloseWithoutPool(t *testing.T) {
	// Close on a zero-value DB must not panic
	db := &DB{}
	db.Close()
}
