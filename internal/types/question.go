package types

// QuestionType distinguishes the two generated item kinds.
type QuestionType string

// Question type constants.
const (
	QuestionTypeMCQ QuestionType = "mcq"
	QuestionTypeFRQ QuestionType = "frq"
)

// Difficulty labels recognized in generated items.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Stimulus is supporting material attached to a question.
type Stimulus struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	AltText string `json:"alt_text,omitempty"`
}

// FRQPart is one labeled part of a free-response item.
type FRQPart struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// Provenance tags a candidate with where it came from, for duplicate
// detection and retry accounting. It is the only upstream reference an
// item carries.
type Provenance struct {
	UnitID  string       `json:"unit_id"`
	Type    QuestionType `json:"type"`
	Attempt int          `json:"attempt"`
}

// QuestionCandidate is one generated item prior to acceptance.
type QuestionCandidate struct {
	Type                 QuestionType `json:"type"`
	Difficulty           string       `json:"difficulty"`
	SkillCodes           []string     `json:"skill_codes"`
	LearningObjectiveIDs []string     `json:"learning_objective_ids"`

	// Multiple-choice fields. The index is never elided so that index 0
	// survives a round trip through JSON.
	Question           string   `json:"question,omitempty"`
	Choices            []string `json:"choices,omitempty"`
	CorrectChoiceIndex int      `json:"correct_choice_index"`

	// Free-response fields.
	Context           string    `json:"context,omitempty"`
	Parts             []FRQPart `json:"parts,omitempty"`
	ScoringGuidelines []string  `json:"scoring_guidelines,omitempty"`

	Stimulus   *Stimulus  `json:"stimulus,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// Stem returns the text used for duplicate detection: the MCQ question stem
// or the FRQ context.
func (c *QuestionCandidate) Stem() string {
	if c.Type == QuestionTypeFRQ {
		return c.Context
	}
	return c.Question
}

// AcceptedQuestion is a candidate that has passed all validators. Immutable
// once accepted; uniquely keyed by (unit id, question type, sequence index).
// Its JSON form is the persisted file format for generated items.
type AcceptedQuestion struct {
	ID                   string       `json:"id"`
	UnitID               string       `json:"unit_id"`
	Type                 QuestionType `json:"type"`
	SequenceIndex        int          `json:"sequence_index"`
	Difficulty           string       `json:"difficulty"`
	SkillCodes           []string     `json:"skill_codes"`
	LearningObjectiveIDs []string     `json:"learning_objective_ids"`

	Question           string   `json:"question,omitempty"`
	Choices            []string `json:"choices,omitempty"`
	CorrectChoiceIndex *int     `json:"correct_choice_index,omitempty"`

	Context           string    `json:"context,omitempty"`
	Parts             []FRQPart `json:"parts,omitempty"`
	ScoringGuidelines []string  `json:"scoring_guidelines,omitempty"`

	Stimulus *Stimulus `json:"stimulus,omitempty"`
}
