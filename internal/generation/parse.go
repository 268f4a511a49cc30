package generation

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/types"
)

// candidateWire is the JSON shape the generation prompts request.
type candidateWire struct {
	Difficulty           string   `json:"difficulty"`
	SkillCodes           []string `json:"skill_codes"`
	LearningObjectiveIDs []string `json:"learning_objective_ids"`

	Question           string   `json:"question"`
	Choices            []string `json:"choices"`
	CorrectChoiceIndex *int     `json:"correct_choice_index"`

	Context           string          `json:"context"`
	Parts             []types.FRQPart `json:"parts"`
	ScoringGuidelines []string        `json:"scoring_guidelines"`

	Stimulus *types.Stimulus `json:"stimulus"`
}

// parseCandidates decodes a model response into question candidates.
// A malformed response fails as a whole; a well-formed array with odd
// entries still yields every entry, leaving rejection to the validator.
func parseCandidates(raw string, qt types.QuestionType, unitID string, attempt int) ([]*types.QuestionCandidate, error) {
	cleaned := llm.CleanJSONBlock(raw)

	var wire []candidateWire
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("response was not a JSON array of questions: %w", err)
	}

	candidates := make([]*types.QuestionCandidate, 0, len(wire))
	for _, w := range wire {
		c := &types.QuestionCandidate{
			Type:                 qt,
			Difficulty:           w.Difficulty,
			SkillCodes:           w.SkillCodes,
			LearningObjectiveIDs: w.LearningObjectiveIDs,
			Question:             w.Question,
			Choices:              w.Choices,
			Context:              w.Context,
			Parts:                w.Parts,
			ScoringGuidelines:    w.ScoringGuidelines,
			Stimulus:             w.Stimulus,
			Provenance: types.Provenance{
				UnitID:  unitID,
				Type:    qt,
				Attempt: attempt,
			},
		}
		if w.CorrectChoiceIndex != nil {
			c.CorrectChoiceIndex = *w.CorrectChoiceIndex
		} else {
			c.CorrectChoiceIndex = -1
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
