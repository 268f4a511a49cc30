package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-compiler/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full compilation pipeline end-to-end",
	Long: `Orchestrates the entire compilation: locate document sections -> extract content record -> build unit payloads -> generate questions -> render output.

Configuration is loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath  string
	runDocRoot     string
	runOutputDir   string
	runAPIKey      string
	runDatabaseURL string
	runVerbose     bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to course config JSON file (required)")
	runCommand.Flags().StringVarP(&runDocRoot, "docs", "d", ".", "Directory course description documents are read from")
	runCommand.Flags().StringVarP(&runOutputDir, "out", "o", "", "Output directory (overrides config)")
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API key (optional, defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress information")

	_ = runCommand.MarkFlagRequired("config")
	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCourseConfig(runConfigPath, runAPIKey, runDatabaseURL)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = runOutputDir
	}
	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	result, err := pipeline.RunPipeline(context.Background(), pipeline.RunOptions{
		Config:       cfg,
		DocumentRoot: runDocRoot,
		Verbose:      runVerbose,
	})
	if err != nil {
		// Partial results may still have been written.
		if result != nil {
			fmt.Fprintf(os.Stderr, "Run aborted; partial output kept in %s\n", result.OutputDir)
		}
		return err
	}

	total := 0
	for _, qs := range result.Questions {
		total += len(qs)
	}
	fmt.Fprintf(os.Stdout, "Generated %d questions across %d units\n", total, len(result.Payloads))
	return nil
}
