package types

// StimulusPolicy tells the generation engine whether and how to attach
// supporting material. The ratio is the probability that a question gets a
// stimulus when no kind is forced for its question type.
type StimulusPolicy struct {
	Ratio        float64                 `json:"ratio"`
	ForcedKinds  map[QuestionType]string `json:"forced_kinds,omitempty"`
	AllowedKinds []string                `json:"allowed_kinds,omitempty"`
}

// PayloadSkill is a skill code resolved with its description for prompting.
type PayloadSkill struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// UnitPayload is the fully-resolved generation context for one unit. It is
// built once per unit per run and never mutated afterwards; the generation
// engine only reads it.
type UnitPayload struct {
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
	UnitID     string `json:"unit_id"`
	UnitName   string `json:"unit_name"`
	UnitIndex  int    `json:"unit_index"`

	Topics             []Topic             `json:"topics"`
	LearningObjectives []LearningObjective `json:"learning_objectives"`
	Skills             []PayloadSkill      `json:"skills"`
	BigIdeas           []BigIdea           `json:"big_ideas"`
	ExamSections       []ExamSection       `json:"exam_sections"`
	TaskVerbs          []TaskVerb          `json:"task_verbs,omitempty"`

	Stimulus StimulusPolicy `json:"stimulus"`
}

// HasLearningObjective reports whether id is among the payload's objectives.
func (p *UnitPayload) HasLearningObjective(id string) bool {
	for _, lo := range p.LearningObjectives {
		if lo.ID == id {
			return true
		}
	}
	return false
}

// HasSkill reports whether code is among the payload's skills.
func (p *UnitPayload) HasSkill(code string) bool {
	for _, s := range p.Skills {
		if s.Code == code {
			return true
		}
	}
	return false
}

// TaskVerbSet returns the payload's task verbs as a lookup set.
func (p *UnitPayload) TaskVerbSet() map[string]bool {
	set := make(map[string]bool, len(p.TaskVerbs))
	for _, tv := range p.TaskVerbs {
		set[tv.Verb] = true
	}
	return set
}

// ExamSectionFor returns the payload's exam section for a question type, or nil.
func (p *UnitPayload) ExamSectionFor(qt QuestionType) *ExamSection {
	want := "I"
	if qt == QuestionTypeFRQ {
		want = "II"
	}
	for i := range p.ExamSections {
		if p.ExamSections[i].Section == want {
			return &p.ExamSections[i]
		}
	}
	return nil
}
