package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-compiler/internal/rendering"
	"github.com/jonathan/exam-compiler/internal/types"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a unit's questions JSON as an HTML page",
	Long:  "Read a unit questions JSON file produced by run or generate and render it as a standalone HTML exam page.",
	RunE:  runRender,
}

var (
	renderQuestionsFile string
	renderCourseName    string
	renderUnitName      string
	renderOutputFile    string
)

func init() {
	renderCmd.Flags().StringVarP(&renderQuestionsFile, "questions", "q", "", "Path to unit questions JSON file (required)")
	renderCmd.Flags().StringVar(&renderCourseName, "course-name", "", "Course name for the page header")
	renderCmd.Flags().StringVar(&renderUnitName, "unit-name", "", "Unit name for the page header")
	renderCmd.Flags().StringVarP(&renderOutputFile, "out", "o", "unit.html", "Path to output HTML file")

	_ = renderCmd.MarkFlagRequired("questions")
	rootCmd.AddCommand(renderCmd)
}

func runRender(_ *cobra.Command, _ []string) error {
	data, err := os.ReadFile(renderQuestionsFile)
	if err != nil {
		return fmt.Errorf("failed to read questions file: %w", err)
	}

	var questions []types.AcceptedQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return fmt.Errorf("failed to parse questions JSON: %w", err)
	}
	if len(questions) == 0 {
		return fmt.Errorf("questions file %s is empty", renderQuestionsFile)
	}

	page, err := rendering.RenderUnit(rendering.UnitPage{
		CourseName: renderCourseName,
		UnitName:   renderUnitName,
		Questions:  questions,
	})
	if err != nil {
		return fmt.Errorf("failed to render unit page: %w", err)
	}

	if err := os.WriteFile(renderOutputFile, []byte(page), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", renderOutputFile, err)
	}

	fmt.Fprintf(os.Stdout, "Rendered %d questions\n", len(questions))
	fmt.Fprintf(os.Stdout, "Output: %s\n", renderOutputFile)
	return nil
}
