package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands_FlagsValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errorString string
	}{
		{
			name:        "run requires --config",
			args:        []string{"run"},
			errorString: "required",
		},
		{
			name:        "extract requires --config",
			args:        []string{"extract", "--out", "rec.json"},
			errorString: "required",
		},
		{
			name:        "build-payloads requires --record",
			args:        []string{"build-payloads", "--config", "config.json"},
			errorString: "required",
		},
		{
			name:        "generate requires --record",
			args:        []string{"generate", "--config", "config.json"},
			errorString: "required",
		},
		{
			name:        "render requires --questions",
			args:        []string{"render"},
			errorString: "required",
		},
	}

	binaryPath := getBinaryPath(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.args...)
			output, err := cmd.CombinedOutput()

			assert.Error(t, err)
			assert.Contains(t, string(output), tt.errorString)
		})
	}
}

func TestRenderCommand_BadQuestionsFile(t *testing.T) {
	binaryPath := getBinaryPath(t)

	dir := t.TempDir()
	badFile := filepath.Join(dir, "questions.json")
	require.NoError(t, os.WriteFile(badFile, []byte("not json"), 0o644))

	cmd := exec.Command(binaryPath, "render", "--questions", badFile)
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "failed to parse questions JSON")
}

func TestHelpersReadContentRecord(t *testing.T) {
	dir := t.TempDir()

	// Missing file
	_, err := readContentRecord(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	// Malformed JSON
	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{"), 0o644))
	_, err = readContentRecord(badPath)
	assert.ErrorContains(t, err, "failed to parse content record JSON")

	// Well-formed but invalid record
	emptyPath := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, []byte("{}"), 0o644))
	_, err = readContentRecord(emptyPath)
	assert.ErrorContains(t, err, "content record validation failed")
}
