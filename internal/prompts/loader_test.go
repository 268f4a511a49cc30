package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownPrompts(t *testing.T) {
	ClearCache()

	tests := []struct {
		filename string
		key      string
		contains string
	}{
		{"locate.json", "locate_sections", "line ranges"},
		{"extract.json", "skills", "subskills"},
		{"extract.json", "units", "learning_objectives"},
		{"extract.json", "retry_refinement", "rejected"},
		{"generate.json", "mcq_batch", "ALLOWED_SKILLS"},
		{"generate.json", "frq_single", "TASK_VERBS"},
		{"stimulus.json", "svg", "</svg>"},
		{"stimulus.json", "image", "RENDERING RULES"},
	}

	for _, tt := range tests {
		prompt, err := Get(tt.filename, tt.key)
		require.NoError(t, err, "%s/%s", tt.filename, tt.key)
		assert.Contains(t, prompt, tt.contains)
	}
}

func TestGet_MissingKey(t *testing.T) {
	_, err := Get("locate.json", "no_such_prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_prompt")
}

func TestGet_MissingFile(t *testing.T) {
	_, err := Get("missing.json", "anything")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	template := "Course {{.CourseName}}, unit {{.UnitName}}."
	result := Format(template, map[string]string{
		"CourseName": "AP Biology",
		"UnitName":   "Chemistry of Life",
	})
	assert.Equal(t, "Course AP Biology, unit Chemistry of Life.", result)
}

func TestFormat_UnusedPlaceholderLeftIntact(t *testing.T) {
	result := Format("{{.Known}} and {{.Unknown}}", map[string]string{"Known": "x"})
	assert.True(t, strings.Contains(result, "{{.Unknown}}"))
}

func TestMustGet_PanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("locate.json", "does_not_exist")
	})
}
