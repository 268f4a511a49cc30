package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/payload"
	"github.com/jonathan/exam-compiler/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate exam questions from an extracted content record",
	Long: `Build unit payloads from a previously extracted content record and run the generation engine over every unit, skipping the location and extraction steps.

Questions and rendered HTML are written to the configured output directory.`,
	RunE: runGenerate,
}

var (
	generateConfigPath string
	generateRecordFile string
	generateOutputDir  string
	generateAPIKey     string
	generateVerbose    bool
)

func init() {
	generateCmd.Flags().StringVar(&generateConfigPath, "config", "", "Path to course config JSON file (required)")
	generateCmd.Flags().StringVarP(&generateRecordFile, "record", "r", "", "Path to content record JSON file (required)")
	generateCmd.Flags().StringVarP(&generateOutputDir, "out", "o", "", "Output directory (overrides config)")
	generateCmd.Flags().StringVar(&generateAPIKey, "api-key", "", "Gemini API key (optional, defaults to GEMINI_API_KEY env var)")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print per-unit generation summaries")

	_ = generateCmd.MarkFlagRequired("config")
	_ = generateCmd.MarkFlagRequired("record")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCourseConfig(generateConfigPath, generateAPIKey, "")
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = generateOutputDir
	}
	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	rec, err := readContentRecord(generateRecordFile)
	if err != nil {
		return err
	}

	payloads, err := payload.BuildAll(rec, pipeline.StimulusPolicyFromConfig(cfg.Stimulus))
	if err != nil {
		return fmt.Errorf("failed to build unit payloads: %w", err)
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, llm.DefaultGeminiConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	opts := pipeline.RunOptions{Config: cfg, Verbose: generateVerbose}
	questions, _, genErr := pipeline.GenerateQuestions(ctx, client, opts, payloads)

	// Write whatever was accepted, even after an abort.
	if err := pipeline.WriteOutputs(cfg, payloads, questions); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if genErr != nil {
		fmt.Fprintf(os.Stderr, "Generation aborted; partial output kept in %s\n", cfg.OutputDir)
		return genErr
	}

	total := 0
	for _, qs := range questions {
		total += len(qs)
	}
	fmt.Fprintf(os.Stdout, "Generated %d questions across %d units\n", total, len(payloads))
	fmt.Fprintf(os.Stdout, "Output: %s\n", cfg.OutputDir)
	return nil
}
