package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-compiler/internal/config"
	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/types"
)

// routingClient answers every pipeline prompt from a canned response table,
// keyed on the opening words of the prompt. Prompts starting with errOn
// fail with a service error instead.
type routingClient struct {
	mu      sync.Mutex
	prompts []string
	errOn   string
}

const locateResponse = `{
	"sections": [
		{"section": "skills", "start_line": 1, "end_line": 1, "confidence": 0.95},
		{"section": "big_ideas", "start_line": 2, "end_line": 2, "confidence": 0.9},
		{"section": "units", "start_line": 3, "end_line": 3, "confidence": 0.92},
		{"section": "exam_sections", "start_line": 4, "end_line": 4, "confidence": 0.85},
		{"section": "task_verbs", "start_line": 5, "end_line": 5, "confidence": 0.8}
	]
}`

const (
	skillsResponse = `{"skills": [{"name": "Selecting Statistical Methods", "subskills": [
		{"code": "1.A", "description": "Identify the question to be answered."}
	]}]}`
	bigIdeasResponse = `{"big_ideas": [{"id": "VAR", "name": "Variation and Distribution", "description": "Variation is everywhere."}]}`
	unitsResponse    = `{"units": [{"name": "Exploring One-Variable Data", "topics": [
		{"name": "Introducing Statistics", "big_ideas": ["VAR-1"], "suggested_skill_codes": ["1.A"],
		 "learning_objectives": [{"id": "VAR-1.A", "description": "Identify the question to be answered."}]}
	]}]}`
	examResponse = `{"exam_sections": [
		{"section": "I", "question_type": "Multiple-choice questions", "num_questions": "40"},
		{"section": "II", "question_type": "Free-response questions", "num_questions": "6"}
	]}`
	verbsResponse = `{"task_verbs": [{"verb": "Justify", "description": "Support with evidence."}]}`
)

func mcqResponse() string {
	items := []map[string]any{}
	stems := []string{
		"Which plot best displays a skewed distribution of incomes?",
		"A census differs from a sample in which of the following ways?",
	}
	for _, stem := range stems {
		items = append(items, map[string]any{
			"difficulty":             "medium",
			"skill_codes":            []string{"1.A"},
			"learning_objective_ids": []string{"VAR-1.A"},
			"question":               stem,
			"choices":                []string{"Mean", "Median", "Range", "IQR"},
			"correct_choice_index":   1,
		})
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func frqResponse() string {
	items := []map[string]any{{
		"difficulty":             "medium",
		"skill_codes":            []string{"1.A"},
		"learning_objective_ids": []string{"VAR-1.A"},
		"context":                "A school board samples households to estimate support for a new budget.",
		"parts": []map[string]string{
			{"label": "a", "prompt": "Justify the board's choice of a random sample."},
			{"label": "b", "prompt": "Justify your estimate of the margin of error."},
		},
		"scoring_guidelines": []string{"1 point for the justification.", "1 point for the estimate."},
	}}
	data, _ := json.Marshal(items)
	return string(data)
}

func (r *routingClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	r.mu.Unlock()

	if r.errOn != "" && strings.HasPrefix(prompt, r.errOn) {
		return "", &llm.ServiceError{Message: "model unavailable"}
	}

	switch {
	case strings.HasPrefix(prompt, "Analyze this"):
		return locateResponse, nil
	case strings.HasPrefix(prompt, "Extract ALL skills"):
		return skillsResponse, nil
	case strings.HasPrefix(prompt, "Extract ALL big ideas"):
		return bigIdeasResponse, nil
	case strings.HasPrefix(prompt, "Extract ALL unit data"):
		return unitsResponse, nil
	case strings.HasPrefix(prompt, "Extract ALL exam section"):
		return examResponse, nil
	case strings.HasPrefix(prompt, "Extract ALL task verbs"):
		return verbsResponse, nil
	case strings.Contains(prompt, "multiple-choice questions"):
		return mcqResponse(), nil
	case strings.Contains(prompt, "free-response question"):
		return frqResponse(), nil
	default:
		return "", errors.New("unexpected prompt: " + prompt[:min(len(prompt), 60)])
	}
}

func (r *routingClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return r.GenerateJSON(ctx, prompt, tier)
}

func (r *routingClient) GenerateImage(context.Context, string) ([]byte, string, error) {
	return nil, "", errors.New("not supported")
}

func (r *routingClient) GetModel(llm.ModelTier) string { return "stub" }
func (r *routingClient) Close() error                  { return nil }

const courseDocument = `Course Skills: 1.A Identify the question to be answered.
Big Ideas: VAR Variation and Distribution.
Unit 1: Exploring One-Variable Data.
Exam Information: Section I multiple-choice, Section II free-response.
Task Verbs: Justify.`

func testConfig(t *testing.T, docRoot, outDir string) *config.CourseConfig {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(docRoot, "ap_statistics_ced.txt"), []byte(courseDocument), 0o644))

	cfg := &config.CourseConfig{
		CourseID:   "ap_statistics",
		CourseName: "AP Statistics",
		DocumentID: "ap_statistics_ced.txt",
		MCQPerUnit: 2,
		FRQPerUnit: 1,
		OutputDir:  outDir,
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunPipeline_EndToEnd(t *testing.T) {
	docRoot := t.TempDir()
	outDir := t.TempDir()
	cfg := testConfig(t, docRoot, outDir)

	var events []ProgressEvent
	result, err := RunPipeline(context.Background(), RunOptions{
		Config:       cfg,
		DocumentRoot: docRoot,
		Client:       &routingClient{},
		OnProgress:   func(e ProgressEvent) { events = append(events, e) },
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	require.NotNil(t, result.Record)
	assert.Equal(t, "ap_statistics", result.Record.CourseMetadata.CourseID)
	require.Len(t, result.Payloads, 1)

	qs := result.Questions["unit_1"]
	require.Len(t, qs, 3)
	assert.Equal(t, "ap_statistics_MCQ_U1Q1", qs[0].ID)
	assert.Equal(t, "ap_statistics_MCQ_U1Q2", qs[1].ID)
	assert.Equal(t, "ap_statistics_FRQ_U1Q1", qs[2].ID)

	require.Len(t, result.Summaries, 1)
	summary := result.Summaries[0]
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.DeliveredMCQ)
	assert.Equal(t, 1, summary.DeliveredFRQ)
	assert.Equal(t, 0, summary.Abandoned)

	// Output files are written per unit
	htmlPath := filepath.Join(outDir, "ap_statistics", "unit_01.html")
	jsonPath := filepath.Join(outDir, "ap_statistics", "unit_01.json")
	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Exploring One-Variable Data")
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ap_statistics_MCQ_U1Q1")

	// Every step reported progress
	steps := make(map[string]bool)
	for _, e := range events {
		steps[e.Step] = true
	}
	for _, step := range []string{StepDocument, StepLocate, StepExtract, StepPayloads, StepGenerate, StepRender} {
		assert.True(t, steps[step], "missing progress event for %s", step)
	}
}

func TestRunPipeline_MissingDocument(t *testing.T) {
	docRoot := t.TempDir()
	outDir := t.TempDir()
	cfg := testConfig(t, docRoot, outDir)
	cfg.DocumentID = "nonexistent.txt"

	_, err := RunPipeline(context.Background(), RunOptions{
		Config:       cfg,
		DocumentRoot: docRoot,
		Client:       &routingClient{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading course description failed")
}

func TestExtractContentRecord(t *testing.T) {
	cfg := &config.CourseConfig{
		CourseID:   "ap_statistics",
		CourseName: "AP Statistics",
		DocumentID: "ap_statistics_ced.txt",
	}
	cfg.ApplyDefaults()

	rec, sectionMap, omitted, err := ExtractContentRecord(context.Background(), &routingClient{}, cfg, courseDocument)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, sectionMap)
	assert.Empty(t, omitted)

	assert.True(t, sectionMap.IsResolved("skills"))
	require.Len(t, rec.Units, 1)
	assert.Equal(t, "unit_1", rec.Units[0].ID)
	require.Len(t, rec.TaskVerbs, 1)
}

func TestExtractContentRecord_FailedSectionOmitted(t *testing.T) {
	cfg := &config.CourseConfig{
		CourseID:   "ap_statistics",
		CourseName: "AP Statistics",
		DocumentID: "ap_statistics_ced.txt",
	}
	cfg.ApplyDefaults()

	client := &routingClient{errOn: "Extract ALL task verbs"}
	rec, _, omitted, err := ExtractContentRecord(context.Background(), client, cfg, courseDocument)
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.Len(t, omitted, 1)
	assert.Equal(t, types.SectionTaskVerbs, omitted[0].Section)

	// The rest of the record still came through and validated.
	assert.Empty(t, rec.TaskVerbs)
	require.Len(t, rec.Units, 1)
	require.Len(t, rec.Skills, 1)
	require.Len(t, rec.ExamSections, 2)
}

func TestRunPipeline_Integration(t *testing.T) {
	// Requires a valid API key and internet access; skipped by default.
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: GEMINI_API_KEY not set")
	}
	docPath := os.Getenv("COURSE_DOCUMENT")
	if docPath == "" {
		t.Skip("Skipping integration test: COURSE_DOCUMENT not set")
	}

	cfg := &config.CourseConfig{
		CourseID:   "ap_integration",
		CourseName: "AP Integration Test",
		DocumentID: filepath.Base(docPath),
		MCQPerUnit: 2,
		FRQPerUnit: 1,
		APIKey:     apiKey,
		OutputDir:  t.TempDir(),
	}
	cfg.ApplyDefaults()

	_, err := RunPipeline(context.Background(), RunOptions{
		Config:       cfg,
		DocumentRoot: filepath.Dir(docPath),
	})
	if err != nil {
		t.Logf("Pipeline run failed (expected if external services are unreachable): %v", err)
	}
}
