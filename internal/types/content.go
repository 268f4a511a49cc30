// Package types provides type definitions for structured records used throughout the exam-compiler system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// CourseMetadata identifies the course a Content Record was extracted from.
type CourseMetadata struct {
	CourseID         string `json:"course_id"`
	Name             string `json:"name"`
	ExtractionMethod string `json:"extraction_method,omitempty"`
	ExtractionDate   string `json:"extraction_date,omitempty"`
}

// Subskill is a coded skill entry (e.g., "1.A") with its description.
type Subskill struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// SkillCategory groups related subskills under a named category.
type SkillCategory struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Subskills   []Subskill `json:"subskills"`
}

// BigIdea is a course-level theme (e.g., "VAR": Variation and Distribution).
type BigIdea struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LearningObjective is a single objective (e.g., "VAR-1.A") with its
// description and optional essential knowledge statements.
type LearningObjective struct {
	ID                 string   `json:"id"`
	Description        string   `json:"description"`
	EssentialKnowledge []string `json:"essential_knowledge,omitempty"`
}

// Topic is a named topic within a unit, referencing big ideas and skills by id.
type Topic struct {
	Name               string              `json:"name"`
	BigIdeaRefs        []string            `json:"big_ideas,omitempty"`
	SkillCodes         []string            `json:"suggested_skill_codes,omitempty"`
	LearningObjectives []LearningObjective `json:"learning_objectives"`
}

// Unit is one organizational unit of a course.
type Unit struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name"`
	DevelopingUnderstanding string  `json:"developing_understanding,omitempty"`
	BuildingPractices       string  `json:"building_practices,omitempty"`
	PreparingForExam        string  `json:"preparing_for_exam,omitempty"`
	Topics                  []Topic `json:"topics"`
}

// ExamSection describes one exam section ("I" multiple-choice, "II" free-response).
type ExamSection struct {
	Section       string   `json:"section"`
	QuestionType  string   `json:"question_type"`
	NumQuestions  string   `json:"num_questions,omitempty"`
	ExamWeighting string   `json:"exam_weighting,omitempty"`
	Timing        string   `json:"timing,omitempty"`
	Descriptions  []string `json:"descriptions,omitempty"`
}

// TaskVerb is an action verb used in free-response prompts, with its
// exam-specific definition.
type TaskVerb struct {
	Verb        string `json:"verb"`
	Description string `json:"description"`
}

// ContentRecord is the normalized representation of a full course description.
// Its JSON form is the persisted file format; the shape is exactly the
// validator's contract for this record kind.
type ContentRecord struct {
	CourseMetadata CourseMetadata  `json:"course_metadata"`
	Skills         []SkillCategory `json:"skills"`
	BigIdeas       []BigIdea       `json:"big_ideas"`
	Units          []Unit          `json:"units"`
	ExamSections   []ExamSection   `json:"exam_sections,omitempty"`
	TaskVerbs      []TaskVerb      `json:"task_verbs,omitempty"`
}

// ExamSectionFor returns the exam section matching a question type
// ("I" for MCQ, "II" for FRQ), or nil if absent.
func (r *ContentRecord) ExamSectionFor(qt QuestionType) *ExamSection {
	want := "I"
	if qt == QuestionTypeFRQ {
		want = "II"
	}
	for i := range r.ExamSections {
		if r.ExamSections[i].Section == want {
			return &r.ExamSections[i]
		}
	}
	return nil
}
