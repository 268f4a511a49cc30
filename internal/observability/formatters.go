// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/exam-compiler/internal/generation"
	"github.com/jonathan/exam-compiler/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSectionMap outputs the resolved and unresolved document sections.
func (p *Printer) PrintSectionMap(sm *types.SectionMap) {
	if sm == nil {
		return
	}

	var sb strings.Builder

	keys := make([]string, 0, len(sm.Resolved))
	for key := range sm.Resolved {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)

	if len(keys) > 0 {
		sb.WriteString("Resolved:\n")
		for _, key := range keys {
			b := sm.Resolved[types.SectionKey(key)]
			sb.WriteString(fmt.Sprintf("  %-14s lines %d-%d", key, b.StartLine, b.EndLine))
			if b.Confidence > 0 {
				sb.WriteString(fmt.Sprintf(" (%.2f)", b.Confidence))
			}
			sb.WriteString("\n")
		}
	}

	if len(sm.Unresolved) > 0 {
		sb.WriteString("\nUnresolved:\n")
		for _, key := range sm.Unresolved {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", key))
		}
	}

	p.printBox("SECTION MAP", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintContentRecord outputs a human-readable summary of the extracted record.
func (p *Printer) PrintContentRecord(rec *types.ContentRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Course:   %s (%s)\n", rec.CourseMetadata.Name, rec.CourseMetadata.CourseID))
	sb.WriteString(fmt.Sprintf("Method:   %s, %s\n", rec.CourseMetadata.ExtractionMethod, rec.CourseMetadata.ExtractionDate))
	sb.WriteString("\n")

	subskills := 0
	for _, cat := range rec.Skills {
		subskills += len(cat.Subskills)
	}
	sb.WriteString(fmt.Sprintf("Skills:     %d categories, %d subskills\n", len(rec.Skills), subskills))
	sb.WriteString(fmt.Sprintf("Big ideas:  %d\n", len(rec.BigIdeas)))
	sb.WriteString(fmt.Sprintf("Units:      %d\n", len(rec.Units)))
	if len(rec.TaskVerbs) > 0 {
		sb.WriteString(fmt.Sprintf("Task verbs: %d\n", len(rec.TaskVerbs)))
	}
	sb.WriteString("\n")

	count := min(len(rec.Units), maxItemsToShow)
	for i := 0; i < count; i++ {
		unit := rec.Units[i]
		los := 0
		for _, topic := range unit.Topics {
			los += len(topic.LearningObjectives)
		}
		name := unit.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		sb.WriteString(fmt.Sprintf("  U%d %s (%d topics, %d LOs)\n", i+1, name, len(unit.Topics), los))
	}
	if len(rec.Units) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more units\n", len(rec.Units)-maxItemsToShow))
	}

	p.printBox("CONTENT RECORD", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintUnitPayload outputs the resolved scope a generation request will see.
func (p *Printer) PrintUnitPayload(payload *types.UnitPayload) {
	if payload == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Unit:     #%d %s\n", payload.UnitIndex+1, payload.UnitName))
	sb.WriteString(fmt.Sprintf("LOs:      %d\n", len(payload.LearningObjectives)))
	sb.WriteString(fmt.Sprintf("Skills:   %d\n", len(payload.Skills)))

	if len(payload.BigIdeas) > 0 {
		ids := make([]string, 0, len(payload.BigIdeas))
		for _, bi := range payload.BigIdeas {
			ids = append(ids, bi.ID)
		}
		joined := strings.Join(ids, ", ")
		if len(joined) > 40 {
			joined = joined[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("Big ideas: %s\n", joined))
	}

	if payload.Stimulus.Ratio > 0 || len(payload.Stimulus.ForcedKinds) > 0 {
		sb.WriteString(fmt.Sprintf("Stimulus: ratio %.0f%%", payload.Stimulus.Ratio*100))
		if len(payload.Stimulus.AllowedKinds) > 0 {
			sb.WriteString(fmt.Sprintf(" [%s]", strings.Join(payload.Stimulus.AllowedKinds, ", ")))
		}
		sb.WriteString("\n")
	}

	p.printBox("UNIT PAYLOAD", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs one unit's generation accounting.
func (p *Printer) PrintRunSummary(s *generation.RunSummary) {
	if s == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Unit:       %s\n", s.UnitID))
	sb.WriteString(fmt.Sprintf("MCQ:        %d / %d delivered\n", s.DeliveredMCQ, s.RequestedMCQ))
	sb.WriteString(fmt.Sprintf("FRQ:        %d / %d delivered\n", s.DeliveredFRQ, s.RequestedFRQ))
	sb.WriteString(fmt.Sprintf("Rejected:   %d\n", s.Rejected))
	sb.WriteString(fmt.Sprintf("Duplicates: %d\n", s.Duplicates))

	title := "UNIT GENERATION COMPLETE"
	if s.Abandoned > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠ Abandoned %d slots after retries ran out\n", s.Abandoned))
		title = "UNIT GENERATION INCOMPLETE"
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}
