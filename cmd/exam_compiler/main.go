// Package main provides the entry point for the exam compiler CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "exam_compiler",
	Short: "AP exam question compiler",
	Long:  "Exam Compiler turns a course and exam description document into a validated content record and generates original multiple-choice and free-response exam questions from it.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
