package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-compiler/internal/docstore"
	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/observability"
	"github.com/jonathan/exam-compiler/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a validated content record from a course description",
	Long:  "Locate the sections of a course and exam description document, extract each one, and write the assembled content record as JSON.",
	RunE:  runExtract,
}

var (
	extractConfigPath string
	extractDocRoot    string
	extractOutputFile string
	extractAPIKey     string
	extractVerbose    bool
)

func init() {
	extractCmd.Flags().StringVar(&extractConfigPath, "config", "", "Path to course config JSON file (required)")
	extractCmd.Flags().StringVarP(&extractDocRoot, "docs", "d", ".", "Directory course description documents are read from")
	extractCmd.Flags().StringVarP(&extractOutputFile, "out", "o", "content_record.json", "Path to output content record JSON")
	extractCmd.Flags().StringVar(&extractAPIKey, "api-key", "", "Gemini API key (optional, defaults to GEMINI_API_KEY env var)")
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "Print the section map and record summary")

	_ = extractCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(_ *cobra.Command, _ []string) error {
	cfg, err := loadCourseConfig(extractConfigPath, extractAPIKey, "")
	if err != nil {
		return err
	}
	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	ctx := context.Background()

	store := docstore.NewFSStore(extractDocRoot)
	document, err := store.Read(cfg.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to read course description: %w", err)
	}

	client, err := llm.NewClient(ctx, llm.DefaultGeminiConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	rec, sectionMap, omitted, err := pipeline.ExtractContentRecord(ctx, client, cfg, document)
	if err != nil {
		return err
	}
	for _, f := range omitted {
		fmt.Fprintf(os.Stderr, "Warning: %v; the %s section was omitted\n", f, f.Section)
	}

	if extractVerbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintSectionMap(sectionMap)
		printer.PrintContentRecord(rec)
	}

	if err := writeJSON(extractOutputFile, rec); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Successfully extracted content record\n")
	fmt.Fprintf(os.Stdout, "Output: %s\n", extractOutputFile)
	return nil
}
