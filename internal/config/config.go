// Package config provides configuration loading and validation for a
// compilation run.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// SectionHint carries locator guidance for one section of the course
// description.
type SectionHint struct {
	Hints []string `json:"hints,omitempty"`
}

// StimulusConfig controls how often questions carry stimuli and of which kinds.
type StimulusConfig struct {
	// Ratio is the fraction of questions that should carry a stimulus.
	Ratio float64 `json:"ratio" validate:"gte=0,lte=1"`
	// ForcedKinds pins a stimulus kind per question type ("mcq", "frq").
	ForcedKinds map[string]string `json:"forced_kinds,omitempty"`
	// AllowedKinds restricts the kinds the generator may choose from.
	AllowedKinds []string `json:"allowed_kinds,omitempty" validate:"dive,oneof=svg table passage image"`
}

// CourseConfig is the per-course configuration for a compilation run.
type CourseConfig struct {
	CourseID   string `json:"course_id" validate:"required"`
	CourseName string `json:"course_name" validate:"required"`
	DocumentID string `json:"document_id" validate:"required"`

	SectionGuide map[string]SectionHint `json:"section_guide,omitempty"`

	// Generation targets
	MCQPerUnit int `json:"mcq_per_unit,omitempty" validate:"gte=0"`
	FRQPerUnit int `json:"frq_per_unit,omitempty" validate:"gte=0"`

	// Question shape
	NumChoices int `json:"num_choices,omitempty" validate:"omitempty,gte=2,lte=8"`
	MinParts   int `json:"min_parts,omitempty" validate:"omitempty,gte=1"`
	MaxParts   int `json:"max_parts,omitempty" validate:"omitempty,gte=1"`

	// DifficultyDistribution maps difficulty names to target fractions.
	// The fractions must sum to 1.
	DifficultyDistribution map[string]float64 `json:"difficulty_distribution,omitempty"`

	Stimulus StimulusConfig `json:"stimulus,omitempty"`

	// Engine behavior
	BatchSize           int     `json:"batch_size,omitempty" validate:"omitempty,gte=1"`
	RetryBound          int     `json:"retry_bound,omitempty" validate:"omitempty,gte=1"`
	Concurrency         int     `json:"concurrency,omitempty" validate:"omitempty,gte=1"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" validate:"gte=0,lte=1"`

	// Integration
	APIKey      string `json:"api_key,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
	OutputDir   string `json:"output_dir,omitempty"`
}

var validate = validator.New()

// Load loads a course configuration from a JSON file and applies defaults.
func Load(path string) (*CourseConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg CourseConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *CourseConfig) ApplyDefaults() {
	if c.MCQPerUnit == 0 && c.FRQPerUnit == 0 {
		c.MCQPerUnit = 10
		c.FRQPerUnit = 2
	}
	if c.NumChoices == 0 {
		c.NumChoices = 4
	}
	if c.MinParts == 0 {
		c.MinParts = 2
	}
	if c.MaxParts == 0 {
		c.MaxParts = 4
	}
	if len(c.DifficultyDistribution) == 0 {
		c.DifficultyDistribution = map[string]float64{
			"easy":   0.3,
			"medium": 0.5,
			"hard":   0.2,
		}
	}
	if c.BatchSize == 0 {
		c.BatchSize = 5
	}
	if c.RetryBound == 0 {
		c.RetryBound = 3
	}
	if c.Concurrency == 0 {
		c.Concurrency = 3
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.8
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *CourseConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.MinParts > c.MaxParts {
		return fmt.Errorf("config error: 'min_parts' (%d) exceeds 'max_parts' (%d)", c.MinParts, c.MaxParts)
	}

	var sum float64
	for name, frac := range c.DifficultyDistribution {
		switch name {
		case "easy", "medium", "hard":
		default:
			return fmt.Errorf("config error: unknown difficulty %q in 'difficulty_distribution'", name)
		}
		if frac < 0 {
			return fmt.Errorf("config error: negative fraction for difficulty %q", name)
		}
		sum += frac
	}
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("config error: 'difficulty_distribution' sums to %.3f, want 1.0", sum)
	}

	for qt, kind := range c.Stimulus.ForcedKinds {
		if qt != "mcq" && qt != "frq" {
			return fmt.Errorf("config error: unknown question type %q in 'forced_kinds'", qt)
		}
		switch kind {
		case "svg", "table", "passage", "image":
		default:
			return fmt.Errorf("config error: unknown stimulus kind %q in 'forced_kinds'", kind)
		}
	}

	return nil
}
