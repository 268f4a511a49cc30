package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-compiler/internal/observability"
	"github.com/jonathan/exam-compiler/internal/payload"
	"github.com/jonathan/exam-compiler/internal/pipeline"
)

var buildPayloadsCmd = &cobra.Command{
	Use:   "build-payloads",
	Short: "Build per-unit generation payloads from a content record",
	Long:  "Resolve every unit of an extracted content record into a self-contained generation payload and write the payloads as JSON.",
	RunE:  runBuildPayloads,
}

var (
	payloadsConfigPath string
	payloadsRecordFile string
	payloadsOutputFile string
	payloadsVerbose    bool
)

func init() {
	buildPayloadsCmd.Flags().StringVar(&payloadsConfigPath, "config", "", "Path to course config JSON file (required)")
	buildPayloadsCmd.Flags().StringVarP(&payloadsRecordFile, "record", "r", "", "Path to content record JSON file (required)")
	buildPayloadsCmd.Flags().StringVarP(&payloadsOutputFile, "out", "o", "payloads.json", "Path to output payloads JSON")
	buildPayloadsCmd.Flags().BoolVarP(&payloadsVerbose, "verbose", "v", false, "Print each unit payload summary")

	_ = buildPayloadsCmd.MarkFlagRequired("config")
	_ = buildPayloadsCmd.MarkFlagRequired("record")
	rootCmd.AddCommand(buildPayloadsCmd)
}

func runBuildPayloads(_ *cobra.Command, _ []string) error {
	cfg, err := loadCourseConfig(payloadsConfigPath, "", "")
	if err != nil {
		return err
	}

	rec, err := readContentRecord(payloadsRecordFile)
	if err != nil {
		return err
	}

	payloads, err := payload.BuildAll(rec, pipeline.StimulusPolicyFromConfig(cfg.Stimulus))
	if err != nil {
		return fmt.Errorf("failed to build unit payloads: %w", err)
	}

	if payloadsVerbose {
		printer := observability.NewPrinter(os.Stdout)
		for _, p := range payloads {
			printer.PrintUnitPayload(p)
		}
	}

	if err := writeJSON(payloadsOutputFile, payloads); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Built %d unit payloads\n", len(payloads))
	fmt.Fprintf(os.Stdout, "Output: %s\n", payloadsOutputFile)
	return nil
}
