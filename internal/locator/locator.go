// Package locator finds the line ranges of a course description's
// logical sections with a single inference request.
package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/exam-compiler/internal/config"
	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/prompts"
	"github.com/jonathan/exam-compiler/internal/types"
)

// LocationUnresolvedError indicates that sections required for the run
// could not be located in the document.
type LocationUnresolvedError struct {
	Sections []types.SectionKey
}

func (e *LocationUnresolvedError) Error() string {
	names := make([]string, len(e.Sections))
	for i, s := range e.Sections {
		names[i] = string(s)
	}
	return fmt.Sprintf("could not locate sections: %s", strings.Join(names, ", "))
}

// requiredSections must resolve for extraction to proceed. Task verbs
// are optional; many course descriptions omit them.
var requiredSections = map[types.SectionKey]bool{
	types.SectionSkills:   true,
	types.SectionBigIdeas: true,
	types.SectionUnits:    true,
}

// Locator resolves section boundaries for a document.
type Locator struct {
	client llm.Client
}

// New creates a Locator backed by the given inference client.
func New(client llm.Client) *Locator {
	return &Locator{client: client}
}

type locateResponse struct {
	Sections []struct {
		Section    string  `json:"section"`
		StartLine  int     `json:"start_line"`
		EndLine    int     `json:"end_line"`
		Confidence float64 `json:"confidence"`
	} `json:"sections"`
}

// Locate identifies the boundaries of every recognized section in one
// inference request. Sections the model omits or reports with an invalid
// range are returned as unresolved; the call fails only when a required
// section is unresolved or the request itself fails.
func (l *Locator) Locate(ctx context.Context, document, courseName string, guide map[string]config.SectionHint) (*types.SectionMap, error) {
	template, err := prompts.Get("locate.json", "locate_sections")
	if err != nil {
		return nil, err
	}

	numbered, lineCount := numberLines(document)
	prompt := prompts.Format(template, map[string]string{
		"CourseName": courseName,
		"Hints":      formatHints(guide),
		"Document":   numbered,
	})

	raw, err := l.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, err
	}

	var resp locateResponse
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse locator response: %w", err)
	}

	result := &types.SectionMap{Resolved: make(map[types.SectionKey]types.SectionBoundary)}
	for _, s := range resp.Sections {
		key := types.SectionKey(s.Section)
		if !knownSection(key) {
			continue
		}
		if s.StartLine < 1 || s.EndLine < s.StartLine || s.StartLine > lineCount {
			continue
		}
		end := s.EndLine
		if end > lineCount {
			end = lineCount
		}
		result.Resolved[key] = types.SectionBoundary{
			SectionKey: key,
			StartLine:  s.StartLine,
			EndLine:    end,
			Confidence: s.Confidence,
		}
	}

	var missing []types.SectionKey
	for _, key := range types.AllSectionKeys {
		if !result.IsResolved(key) {
			result.Unresolved = append(result.Unresolved, key)
			if requiredSections[key] {
				missing = append(missing, key)
			}
		}
	}

	if len(missing) > 0 {
		return result, &LocationUnresolvedError{Sections: missing}
	}
	return result, nil
}

// Excerpt returns the document slice a boundary covers, including both
// endpoint lines.
func Excerpt(document string, b types.SectionBoundary) string {
	lines := strings.Split(document, "\n")
	start := b.StartLine - 1
	end := b.EndLine
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

func numberLines(document string) (string, int) {
	lines := strings.Split(document, "\n")
	var sb strings.Builder
	for i, line := range lines {
		sb.WriteString(fmt.Sprintf("%d: %s\n", i+1, line))
	}
	return sb.String(), len(lines)
}

func formatHints(guide map[string]config.SectionHint) string {
	if len(guide) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, key := range types.AllSectionKeys {
		hint, ok := guide[string(key)]
		if !ok || len(hint.Hints) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", key, strings.Join(hint.Hints, "; ")))
	}
	if sb.Len() == 0 {
		return "(none)"
	}
	return sb.String()
}

func knownSection(key types.SectionKey) bool {
	for _, k := range types.AllSectionKeys {
		if k == key {
			return true
		}
	}
	return false
}
