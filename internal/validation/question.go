package validation

import (
	"fmt"
	"strings"

	"github.com/jonathan/exam-compiler/internal/types"
)

// QuestionRules holds the configurable shape constraints for generated
// questions.
type QuestionRules struct {
	NumChoices int
	MinParts   int
	MaxParts   int
	// StimulusKinds restricts the kinds a question stimulus may use.
	// Empty means any kind is acceptable.
	StimulusKinds []string
}

// ValidateCandidate checks a generated question against the shape rules
// and against the unit payload it must align with. All violations are
// collected into a single QuestionError.
func (r QuestionRules) ValidateCandidate(c *types.QuestionCandidate, payload *types.UnitPayload) error {
	var reasons []string

	switch c.Difficulty {
	case types.DifficultyEasy, types.DifficultyMedium, types.DifficultyHard:
	default:
		reasons = append(reasons, fmt.Sprintf("unknown difficulty %q", c.Difficulty))
	}

	if len(c.SkillCodes) == 0 {
		reasons = append(reasons, "no skill codes")
	}
	for _, code := range c.SkillCodes {
		if !ValidSkillCode(code) {
			reasons = append(reasons, fmt.Sprintf("malformed skill code %q", code))
		} else if !payload.HasSkill(code) {
			reasons = append(reasons, fmt.Sprintf("skill code %q not allowed for this unit", code))
		}
	}

	if len(c.LearningObjectiveIDs) == 0 {
		reasons = append(reasons, "no learning objective ids")
	}
	for _, id := range c.LearningObjectiveIDs {
		if !ValidLearningObjectiveID(id) {
			reasons = append(reasons, fmt.Sprintf("malformed learning objective id %q", id))
		} else if !payload.HasLearningObjective(id) {
			reasons = append(reasons, fmt.Sprintf("learning objective %q not in this unit", id))
		}
	}

	switch c.Type {
	case types.QuestionTypeMCQ:
		reasons = append(reasons, r.validateMCQ(c)...)
	case types.QuestionTypeFRQ:
		reasons = append(reasons, r.validateFRQ(c, payload)...)
	default:
		reasons = append(reasons, fmt.Sprintf("unknown question type %q", c.Type))
	}

	if c.Stimulus != nil {
		reasons = append(reasons, r.validateStimulusRef(c.Stimulus)...)
	}

	if len(reasons) > 0 {
		return &QuestionError{Reasons: reasons}
	}
	return nil
}

func (r QuestionRules) validateMCQ(c *types.QuestionCandidate) []string {
	var reasons []string

	if strings.TrimSpace(c.Question) == "" {
		reasons = append(reasons, "empty question stem")
	}

	if r.NumChoices > 0 && len(c.Choices) != r.NumChoices {
		reasons = append(reasons, fmt.Sprintf("%d choices, want %d", len(c.Choices), r.NumChoices))
	} else if len(c.Choices) < 2 {
		reasons = append(reasons, "fewer than 2 choices")
	}

	if c.CorrectChoiceIndex < 0 || c.CorrectChoiceIndex >= len(c.Choices) {
		reasons = append(reasons, fmt.Sprintf("correct_choice_index %d out of range for %d choices", c.CorrectChoiceIndex, len(c.Choices)))
	}

	seen := make(map[string]int)
	for i, choice := range c.Choices {
		if strings.TrimSpace(choice) == "" {
			reasons = append(reasons, fmt.Sprintf("choice %d is empty", i))
			continue
		}
		key := normalizeChoice(choice)
		if prev, dup := seen[key]; dup {
			reasons = append(reasons, fmt.Sprintf("choices %d and %d are duplicates", prev, i))
		} else {
			seen[key] = i
		}
	}

	return reasons
}

func (r QuestionRules) validateFRQ(c *types.QuestionCandidate, payload *types.UnitPayload) []string {
	var reasons []string

	if strings.TrimSpace(c.Context) == "" {
		reasons = append(reasons, "empty context")
	}

	if r.MinParts > 0 && len(c.Parts) < r.MinParts {
		reasons = append(reasons, fmt.Sprintf("%d parts, want at least %d", len(c.Parts), r.MinParts))
	}
	if r.MaxParts > 0 && len(c.Parts) > r.MaxParts {
		reasons = append(reasons, fmt.Sprintf("%d parts, want at most %d", len(c.Parts), r.MaxParts))
	}

	verbs := payload.TaskVerbSet()
	for i, part := range c.Parts {
		wantLabel := string(rune('a' + i))
		if part.Label != wantLabel {
			reasons = append(reasons, fmt.Sprintf("part %d labeled %q, want %q", i, part.Label, wantLabel))
		}
		prompt := strings.TrimSpace(part.Prompt)
		if prompt == "" {
			reasons = append(reasons, fmt.Sprintf("part %q has an empty prompt", part.Label))
			continue
		}
		if len(verbs) > 0 && !startsWithTaskVerb(prompt, verbs) {
			reasons = append(reasons, fmt.Sprintf("part %q does not begin with a task verb", part.Label))
		}
	}

	if len(c.ScoringGuidelines) != len(c.Parts) {
		reasons = append(reasons, fmt.Sprintf("%d scoring guidelines for %d parts", len(c.ScoringGuidelines), len(c.Parts)))
	}
	for i, g := range c.ScoringGuidelines {
		if strings.TrimSpace(g) == "" {
			reasons = append(reasons, fmt.Sprintf("scoring guideline %d is empty", i))
		}
	}

	return reasons
}

func (r QuestionRules) validateStimulusRef(s *types.Stimulus) []string {
	var reasons []string

	if strings.TrimSpace(s.Content) == "" {
		reasons = append(reasons, "stimulus has no content")
	}
	if len(r.StimulusKinds) > 0 {
		allowed := false
		for _, kind := range r.StimulusKinds {
			if s.Kind == kind {
				allowed = true
				break
			}
		}
		if !allowed {
			reasons = append(reasons, fmt.Sprintf("stimulus kind %q not allowed", s.Kind))
		}
	}

	return reasons
}

// startsWithTaskVerb reports whether the prompt opens with one of the
// course's task verbs. Verb entries like "Identify/Indicate/Circle" match
// on any of their alternatives.
func startsWithTaskVerb(prompt string, verbs map[string]bool) bool {
	lower := strings.ToLower(prompt)
	for verb := range verbs {
		for _, alt := range strings.Split(verb, "/") {
			alt = strings.ToLower(strings.TrimSpace(alt))
			if alt != "" && strings.HasPrefix(lower, alt) {
				return true
			}
		}
	}
	return false
}

func normalizeChoice(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// SummarizeRejections condenses a set of rejection errors into a compact
// report suitable for inclusion in a repair prompt. Repeated reasons are
// counted once.
func SummarizeRejections(errs []error) string {
	counts := make(map[string]int)
	var order []string
	for _, err := range errs {
		qe, ok := err.(*QuestionError)
		if !ok {
			continue
		}
		for _, reason := range qe.Reasons {
			if counts[reason] == 0 {
				order = append(order, reason)
			}
			counts[reason]++
		}
	}

	var sb strings.Builder
	for _, reason := range order {
		if counts[reason] > 1 {
			sb.WriteString(fmt.Sprintf("- %s (x%d)\n", reason, counts[reason]))
		} else {
			sb.WriteString(fmt.Sprintf("- %s\n", reason))
		}
	}
	return sb.String()
}
