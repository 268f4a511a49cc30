// Package pipeline provides the high-level orchestration for compiling a
// course description into generated exam questions.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/exam-compiler/internal/config"
	"github.com/jonathan/exam-compiler/internal/db"
	"github.com/jonathan/exam-compiler/internal/docstore"
	"github.com/jonathan/exam-compiler/internal/extractor"
	"github.com/jonathan/exam-compiler/internal/generation"
	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/locator"
	"github.com/jonathan/exam-compiler/internal/observability"
	"github.com/jonathan/exam-compiler/internal/payload"
	"github.com/jonathan/exam-compiler/internal/rendering"
	"github.com/jonathan/exam-compiler/internal/schemas"
	"github.com/jonathan/exam-compiler/internal/stimulus"
	"github.com/jonathan/exam-compiler/internal/types"
	"github.com/jonathan/exam-compiler/internal/validation"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	UnitID  string `json:"unit_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// Step names reported through ProgressEvent.
const (
	StepDocument = "document"
	StepLocate   = "locate"
	StepExtract  = "extract"
	StepPayloads = "payloads"
	StepGenerate = "generate"
	StepRender   = "render"
)

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Config       *config.CourseConfig
	DocumentRoot string     // directory documents are read from; defaults to "."
	Client       llm.Client // optional; created from Config.APIKey when nil
	Verbose      bool
	OnProgress   ProgressCallback
}

// RunResult holds everything a completed (or aborted) run produced.
// On cancellation the result carries whatever was accepted before the abort.
type RunResult struct {
	RunID     uuid.UUID
	Record    *types.ContentRecord
	Payloads  []*types.UnitPayload
	Questions map[string][]types.AcceptedQuestion
	Summaries []*generation.RunSummary
	OutputDir string
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *RunOptions, step, unitID, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Step:    step,
			Message: message,
			UnitID:  unitID,
			Content: content,
		})
	}
}

// StimulusPolicyFromConfig converts the stimulus configuration into the
// payload form the generation engine reads.
func StimulusPolicyFromConfig(sc config.StimulusConfig) types.StimulusPolicy {
	policy := types.StimulusPolicy{
		Ratio:        sc.Ratio,
		AllowedKinds: sc.AllowedKinds,
	}
	if len(sc.ForcedKinds) > 0 {
		policy.ForcedKinds = make(map[types.QuestionType]string, len(sc.ForcedKinds))
		for qt, kind := range sc.ForcedKinds {
			policy.ForcedKinds[types.QuestionType(qt)] = kind
		}
	}
	return policy
}

// objectiveIDs collects the payload's learning objective ids.
func objectiveIDs(p *types.UnitPayload) []string {
	ids := make([]string, 0, len(p.LearningObjectives))
	for _, lo := range p.LearningObjectives {
		ids = append(ids, lo.ID)
	}
	return ids
}

// ExtractContentRecord runs the location and extraction steps and validates
// the resulting record. It is the reusable first half of the pipeline.
// Sections that failed extraction are reported in the omitted list; a record
// missing a section the downstream steps cannot do without still fails
// validation here.
func ExtractContentRecord(ctx context.Context, client llm.Client, cfg *config.CourseConfig, document string) (*types.ContentRecord, *types.SectionMap, []*extractor.ExtractionFailedError, error) {
	loc := locator.New(client)
	sectionMap, err := loc.Locate(ctx, document, cfg.CourseName, cfg.SectionGuide)
	if err != nil {
		return nil, sectionMap, nil, fmt.Errorf("section location failed: %w", err)
	}

	ext := extractor.New(client, cfg.RetryBound, cfg.Concurrency)
	rec, omitted, err := ext.ExtractRecord(ctx, document, cfg.CourseID, cfg.CourseName, sectionMap)
	if err != nil {
		return nil, sectionMap, nil, fmt.Errorf("extraction failed: %w", err)
	}

	if err := validation.ValidateRecord(rec); err != nil {
		return nil, sectionMap, omitted, fmt.Errorf("content record validation failed: %w", err)
	}
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, sectionMap, omitted, fmt.Errorf("failed to marshal content record: %w", err)
	}
	if err := schemas.ValidateContentRecord(string(recJSON)); err != nil {
		return nil, sectionMap, omitted, fmt.Errorf("content record schema validation failed: %w", err)
	}

	return rec, sectionMap, omitted, nil
}

// GenerateQuestions runs the generation engine over every unit payload under
// bounded concurrency. Duplicate suppression is scoped to each unit. On
// cancellation it returns whatever each unit had accepted so far alongside
// the error.
func GenerateQuestions(ctx context.Context, client llm.Client, opts RunOptions, payloads []*types.UnitPayload) (map[string][]types.AcceptedQuestion, []*generation.RunSummary, error) {
	cfg := opts.Config
	printer := observability.NewPrinter(os.Stdout)

	engine := generation.NewEngine(client, generation.Options{
		BatchSize:              cfg.BatchSize,
		RetryBound:             cfg.RetryBound,
		NumChoices:             cfg.NumChoices,
		MinParts:               cfg.MinParts,
		MaxParts:               cfg.MaxParts,
		DifficultyDistribution: cfg.DifficultyDistribution,
	}, stimulus.NewResolver(client))

	questions := make(map[string][]types.AcceptedQuestion, len(payloads))
	summaries := make([]*generation.RunSummary, len(payloads))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, p := range payloads {
		g.Go(func() error {
			// Coverage and duplicate suppression are both scoped to the unit.
			coverage := generation.NewCoverageTracker(objectiveIDs(p))
			dedupe := generation.NewDuplicateDetector(cfg.SimilarityThreshold)
			accepted, summary, genErr := engine.GenerateUnit(gCtx, p, cfg.MCQPerUnit, cfg.FRQPerUnit, coverage, dedupe)

			// Keep partial results even when the unit aborted.
			mu.Lock()
			questions[p.UnitID] = accepted
			summaries[i] = summary
			mu.Unlock()

			if opts.Verbose && summary != nil {
				printer.PrintRunSummary(summary)
			}
			emitProgress(&opts, StepGenerate, p.UnitID,
				fmt.Sprintf("Unit %s: %d questions accepted", p.UnitID, len(accepted)), summary)
			return genErr
		})
	}
	return questions, summaries, g.Wait()
}

// RunPipeline orchestrates the full compilation: read the course description,
// locate and extract its sections, build unit payloads, generate questions
// for every unit under bounded concurrency, and render the output.
func RunPipeline(ctx context.Context, opts RunOptions) (*RunResult, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("course config is required")
	}

	// Initialize observability printer for verbose output
	printer := observability.NewPrinter(os.Stdout)

	// Initialize database connection if configured
	var database *db.DB
	var runID uuid.UUID
	if cfg.DatabaseURL != "" {
		var err error
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: Failed to connect to database: %v\n", err)
			fmt.Printf("Continuing without database persistence...\n")
			database = nil
		} else {
			defer database.Close()
			if opts.Verbose {
				fmt.Printf("[VERBOSE] Connected to database\n")
			}
		}
	}

	fmt.Printf("Step 1/6: Reading course description %s...\n", cfg.DocumentID)
	root := opts.DocumentRoot
	if root == "" {
		root = "."
	}
	store := docstore.NewFSStore(root)
	document, err := store.Read(cfg.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("reading course description failed: %w", err)
	}
	emitProgress(&opts, StepDocument, "",
		fmt.Sprintf("Read course description %s (%d bytes)", cfg.DocumentID, len(document)), nil)

	client := opts.Client
	if client == nil {
		client, err = llm.NewClient(ctx, llm.DefaultGeminiConfig(), cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		defer client.Close()
	}

	fmt.Printf("Step 2/6: Locating document sections...\n")
	loc := locator.New(client)
	sectionMap, err := loc.Locate(ctx, document, cfg.CourseName, cfg.SectionGuide)
	if err != nil {
		return nil, fmt.Errorf("section location failed: %w", err)
	}
	if opts.Verbose {
		printer.PrintSectionMap(sectionMap)
	}
	emitProgress(&opts, StepLocate, "",
		fmt.Sprintf("Resolved %d sections", len(sectionMap.Resolved)), nil)

	fmt.Printf("Step 3/6: Extracting content record...\n")
	ext := extractor.New(client, cfg.RetryBound, cfg.Concurrency)
	rec, omitted, err := ext.ExtractRecord(ctx, document, cfg.CourseID, cfg.CourseName, sectionMap)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	for _, f := range omitted {
		fmt.Printf("Warning: %v\n", f)
		fmt.Printf("Continuing without the %s section...\n", f.Section)
	}
	if err := validation.ValidateRecord(rec); err != nil {
		return nil, fmt.Errorf("content record validation failed: %w", err)
	}
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content record: %w", err)
	}
	if err := schemas.ValidateContentRecord(string(recJSON)); err != nil {
		return nil, fmt.Errorf("content record schema validation failed: %w", err)
	}
	if opts.Verbose {
		printer.PrintContentRecord(rec)
	}
	emitProgress(&opts, StepExtract, "",
		fmt.Sprintf("Extracted content record with %d units", len(rec.Units)), rec)

	// Save to database if connected
	if database != nil {
		runID, err = database.CreateRun(ctx, cfg.CourseID, cfg.DocumentID)
		if err != nil {
			fmt.Printf("Warning: Failed to create database run: %v\n", err)
			runID = uuid.Nil
		} else {
			if opts.Verbose {
				fmt.Printf("[VERBOSE] Created database run: %s\n", runID)
			}
			_ = database.SaveContentRecord(ctx, runID, rec)
		}
	}

	fmt.Printf("Step 4/6: Building unit payloads...\n")
	payloads, err := payload.BuildAll(rec, StimulusPolicyFromConfig(cfg.Stimulus))
	if err != nil {
		return nil, fmt.Errorf("building unit payloads failed: %w", err)
	}
	emitProgress(&opts, StepPayloads, "",
		fmt.Sprintf("Built %d unit payloads", len(payloads)), nil)

	fmt.Printf("Step 5/6: Generating questions for %d units (concurrency %d)...\n",
		len(payloads), cfg.Concurrency)
	questions, summaries, runErr := GenerateQuestions(ctx, client, opts, payloads)
	if runErr != nil {
		fmt.Printf("Warning: Generation aborted: %v\n", runErr)
	}

	fmt.Printf("Step 6/6: Rendering output to %s...\n", cfg.OutputDir)
	result := &RunResult{
		RunID:     runID,
		Record:    rec,
		Payloads:  payloads,
		Questions: questions,
		Summaries: summaries,
		OutputDir: cfg.OutputDir,
	}
	if err := WriteOutputs(cfg, payloads, questions); err != nil {
		// Rendering failure should not discard already generated questions.
		fmt.Printf("Warning: Failed to write output files: %v\n", err)
		if runErr == nil {
			runErr = err
		}
	}
	emitProgress(&opts, StepRender, "", fmt.Sprintf("Wrote output to %s", cfg.OutputDir), nil)

	// Persist questions and summaries, and close out the run
	if database != nil && runID != uuid.Nil {
		for _, p := range payloads {
			if qs := questions[p.UnitID]; len(qs) > 0 {
				_ = database.SaveQuestions(ctx, runID, qs)
			}
		}
		for i, summary := range summaries {
			if summary != nil {
				_ = database.SaveRunSummary(ctx, runID, payloads[i].UnitID, summary)
			}
		}
		status := db.RunStatusCompleted
		if runErr != nil {
			status = db.RunStatusAborted
		}
		_ = database.CompleteRun(ctx, runID, status)
	}

	if runErr != nil {
		return result, runErr
	}
	fmt.Printf("Done! Generated questions for %d units.\n", len(payloads))
	return result, nil
}

// WriteOutputs renders one HTML page and one JSON file per unit.
func WriteOutputs(cfg *config.CourseConfig, payloads []*types.UnitPayload, questions map[string][]types.AcceptedQuestion) error {
	outDir := filepath.Join(cfg.OutputDir, cfg.CourseID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, p := range payloads {
		qs := questions[p.UnitID]
		if len(qs) == 0 {
			continue
		}

		jsonBytes, err := json.MarshalIndent(qs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal questions for %s: %w", p.UnitID, err)
		}
		jsonPath := filepath.Join(outDir, fmt.Sprintf("unit_%02d.json", p.UnitIndex+1))
		if err := os.WriteFile(jsonPath, jsonBytes, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", jsonPath, err)
		}

		page, err := rendering.RenderUnit(rendering.UnitPage{
			CourseName: cfg.CourseName,
			UnitName:   p.UnitName,
			Questions:  qs,
		})
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", p.UnitID, err)
		}
		htmlPath := filepath.Join(outDir, fmt.Sprintf("unit_%02d.html", p.UnitIndex+1))
		if err := os.WriteFile(htmlPath, []byte(page), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", htmlPath, err)
		}
	}
	return nil
}
