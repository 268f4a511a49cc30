package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/exam-compiler/internal/config"
	"github.com/jonathan/exam-compiler/internal/types"
	"github.com/jonathan/exam-compiler/internal/validation"
)

// loadCourseConfig loads the course config and applies flag and environment
// overrides for the API key and database URL.
func loadCourseConfig(path, apiKey, databaseURL string) (*config.CourseConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}

// requireAPIKey rejects configs without a usable API key.
func requireAPIKey(cfg *config.CourseConfig) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	return nil
}

// readContentRecord loads and validates a content record JSON file.
func readContentRecord(path string) (*types.ContentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content record: %w", err)
	}

	var rec types.ContentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse content record JSON: %w", err)
	}

	if err := validation.ValidateRecord(&rec); err != nil {
		return nil, fmt.Errorf("content record validation failed: %w", err)
	}
	return &rec, nil
}

// writeJSON writes v to path as indented JSON.
func writeJSON(path string, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, jsonBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
