package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/exam-compiler/internal/generation"
	"github.com/jonathan/exam-compiler/internal/types"
)

func TestPrintSectionMap(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	sm := &types.SectionMap{
		Resolved: map[types.SectionKey]types.SectionBoundary{
			types.SectionSkills: {SectionKey: types.SectionSkills, StartLine: 10, EndLine: 42, Confidence: 0.9},
			types.SectionUnits:  {SectionKey: types.SectionUnits, StartLine: 50, EndLine: 200},
		},
		Unresolved: []types.SectionKey{types.SectionTaskVerbs},
	}

	p.PrintSectionMap(sm)
	output := buf.String()

	assert.Contains(t, output, "SECTION MAP")
	assert.Contains(t, output, "skills")
	assert.Contains(t, output, "lines 10-42")
	assert.Contains(t, output, "(0.90)")
	assert.Contains(t, output, "Unresolved:")
	assert.Contains(t, output, "task_verbs")
}

func TestPrintSectionMap_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSectionMap(nil)

	assert.Empty(t, buf.String())
}

func TestPrintContentRecord(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	rec := &types.ContentRecord{
		CourseMetadata: types.CourseMetadata{
			CourseID:         "ap-calculus-ab",
			Name:             "AP Calculus AB",
			ExtractionMethod: "llm_sectioned",
			ExtractionDate:   "2026-01-15",
		},
		Skills: []types.SkillCategory{
			{Name: "Practice 1", Subskills: []types.Subskill{{Code: "1.A"}, {Code: "1.B"}}},
		},
		BigIdeas: []types.BigIdea{{ID: "LIM", Name: "Limits"}},
		Units: []types.Unit{
			{
				Name: "Limits and Continuity",
				Topics: []types.Topic{
					{Name: "Defining Limits", LearningObjectives: []types.LearningObjective{{ID: "LIM-1.A"}}},
				},
			},
		},
	}

	p.PrintContentRecord(rec)
	output := buf.String()

	assert.Contains(t, output, "CONTENT RECORD")
	assert.Contains(t, output, "AP Calculus AB")
	assert.Contains(t, output, "ap-calculus-ab")
	assert.Contains(t, output, "1 categories, 2 subskills")
	assert.Contains(t, output, "U1 Limits and Continuity")
	assert.Contains(t, output, "1 topics, 1 LOs")
}

func TestPrintUnitPayload(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	payload := &types.UnitPayload{
		UnitIndex: 0,
		UnitName:  "Limits and Continuity",
		LearningObjectives: []types.LearningObjective{
			{ID: "LIM-1.A"}, {ID: "LIM-1.B"},
		},
		Skills:   []types.PayloadSkill{{Code: "1.A"}},
		BigIdeas: []types.BigIdea{{ID: "LIM"}},
		Stimulus: types.StimulusPolicy{Ratio: 0.3, AllowedKinds: []string{"table", "svg"}},
	}

	p.PrintUnitPayload(payload)
	output := buf.String()

	assert.Contains(t, output, "UNIT PAYLOAD")
	assert.Contains(t, output, "#1 Limits and Continuity")
	assert.Contains(t, output, "LOs:      2")
	assert.Contains(t, output, "LIM")
	assert.Contains(t, output, "ratio 30%")
	assert.Contains(t, output, "table, svg")
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	s := &generation.RunSummary{
		UnitID:       "unit_0",
		RequestedMCQ: 10,
		DeliveredMCQ: 10,
		RequestedFRQ: 2,
		DeliveredFRQ: 2,
		Rejected:     3,
		Duplicates:   1,
	}

	p.PrintRunSummary(s)
	output := buf.String()

	assert.Contains(t, output, "UNIT GENERATION COMPLETE")
	assert.Contains(t, output, "10 / 10 delivered")
	assert.Contains(t, output, "Rejected:   3")
	assert.Contains(t, output, "Duplicates: 1")
	assert.NotContains(t, output, "Abandoned")
}

func TestPrintRunSummary_Shortfall(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	s := &generation.RunSummary{
		UnitID:       "unit_1",
		RequestedMCQ: 10,
		DeliveredMCQ: 7,
		RequestedFRQ: 2,
		DeliveredFRQ: 2,
		Abandoned:    3,
	}

	p.PrintRunSummary(s)
	output := buf.String()

	assert.Contains(t, output, "UNIT GENERATION INCOMPLETE")
	assert.Contains(t, output, "Abandoned 3 slots")
}
