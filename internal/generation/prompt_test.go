package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/exam-compiler/internal/types"
)

func contextPayload() *types.UnitPayload {
	return &types.UnitPayload{
		CourseID:   "ap_statistics",
		CourseName: "AP Statistics",
		UnitID:     "unit_1",
		UnitName:   "Exploring One-Variable Data",
		UnitIndex:  0,
		Topics: []types.Topic{
			{
				Name:        "Introducing Statistics",
				BigIdeaRefs: []string{"VAR-1"},
				SkillCodes:  []string{"1.A"},
				LearningObjectives: []types.LearningObjective{
					{ID: "VAR-1.A", Description: "Identify questions suggested by variation."},
				},
			},
		},
		LearningObjectives: []types.LearningObjective{
			{ID: "VAR-1.A", Description: "Identify questions suggested by variation."},
			{ID: "UNC-1.K", Description: "Compare distributions."},
		},
		Skills: []types.PayloadSkill{
			{Code: "2.A", Description: "Describe data."},
			{Code: "1.A", Description: "Identify the question."},
		},
		BigIdeas: []types.BigIdea{
			{ID: "VAR", Name: "Variation and Distribution", Description: "Variation is everywhere."},
		},
		ExamSections: []types.ExamSection{
			{Section: "I", QuestionType: "Multiple-choice questions", Descriptions: []string{"40 questions covering all units."}},
			{Section: "II", QuestionType: "Free-response questions", Descriptions: []string{"Six questions."}},
		},
		TaskVerbs: []types.TaskVerb{
			{Verb: "Justify", Description: strings.Repeat("x", 150)},
		},
	}
}

func TestBuildUnitContext_MCQ(t *testing.T) {
	got := BuildUnitContext(contextPayload(), types.QuestionTypeMCQ)

	assert.Contains(t, got, "AP Statistics | Unit 1: Exploring One-Variable Data")
	assert.Contains(t, got, "ALLOWED_SKILLS: 1.A,2.A")
	assert.Contains(t, got, "ALLOWED_SKILL_DESC: 1.A=Identify the question. ; 2.A=Describe data.")
	assert.Contains(t, got, "ALLOWED_LOS: UNC-1.K,VAR-1.A")
	assert.Contains(t, got, "BIG_IDEAS: VAR")
	assert.Contains(t, got, "VAR (Variation and Distribution): Variation is everywhere.")
	assert.Contains(t, got, "T1 Introducing Statistics | skills:1.A | big:VAR-1")
	assert.Contains(t, got, "40 questions covering all units.")

	// Section II context and task verbs are FRQ-only.
	assert.NotContains(t, got, "Six questions.")
	assert.NotContains(t, got, "TASK_VERBS:")
}

func TestBuildUnitContext_FRQ(t *testing.T) {
	got := BuildUnitContext(contextPayload(), types.QuestionTypeFRQ)

	assert.Contains(t, got, "Six questions.")
	assert.Contains(t, got, "TASK_VERBS:")
	assert.Contains(t, got, "Justify: "+strings.Repeat("x", 100)+"...")
	assert.NotContains(t, got, "40 questions covering all units.")
}

func TestBuildUnitContext_Deterministic(t *testing.T) {
	p := contextPayload()
	assert.Equal(t, BuildUnitContext(p, types.QuestionTypeMCQ), BuildUnitContext(p, types.QuestionTypeMCQ))
}

func TestFormatDifficultyGuidance(t *testing.T) {
	got := formatDifficultyGuidance(map[string]float64{"easy": 0.3, "medium": 0.5, "hard": 0.2})
	assert.Equal(t, "30% easy, 50% medium, 20% hard", got)

	assert.Equal(t, "a balanced mix of easy, medium, and hard", formatDifficultyGuidance(nil))
}

func TestPickDifficulty_TracksDistribution(t *testing.T) {
	dist := map[string]float64{"easy": 0.3, "medium": 0.5, "hard": 0.2}

	counts := map[string]int{}
	for i := 0; i < 10; i++ {
		counts[pickDifficulty(dist, i, 10)]++
	}

	assert.Equal(t, 3, counts["easy"])
	assert.Equal(t, 5, counts["medium"])
	assert.Equal(t, 2, counts["hard"])
}

func TestOverAsk(t *testing.T) {
	assert.Equal(t, 3, overAsk(1))
	assert.Equal(t, 3, overAsk(3))
	assert.Equal(t, 2, overAsk(4))
	assert.Equal(t, 5, overAsk(10))
	assert.Equal(t, 10, overAsk(40))
}
