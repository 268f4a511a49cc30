// Package validation checks extracted content records and generated
// questions against the course's structural rules. Invalid data is
// rejected with a reason, never silently coerced.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/exam-compiler/internal/types"
)

var (
	loIDPattern       = regexp.MustCompile(`^[A-Z]{2,4}-[0-9]+\.[A-Z]$`)
	skillCodePattern  = regexp.MustCompile(`^[0-9]+\.[A-Z]$`)
	bigIdeaIDPattern  = regexp.MustCompile(`^[A-Z]{2,4}$`)
	bigIdeaRefPattern = regexp.MustCompile(`^[A-Z]{2,4}-[0-9]+$`)
)

// ValidLearningObjectiveID reports whether id has the canonical form,
// e.g. "VAR-1.A".
func ValidLearningObjectiveID(id string) bool {
	return loIDPattern.MatchString(id)
}

// ValidSkillCode reports whether code has the canonical form, e.g. "1.A".
func ValidSkillCode(code string) bool {
	return skillCodePattern.MatchString(code)
}

// ValidBigIdeaID reports whether id has the canonical form, e.g. "VAR".
func ValidBigIdeaID(id string) bool {
	return bigIdeaIDPattern.MatchString(id)
}

// ValidBigIdeaRef reports whether ref has the canonical topic-level
// form, e.g. "VAR-1".
func ValidBigIdeaRef(ref string) bool {
	return bigIdeaRefPattern.MatchString(ref)
}

// ValidateRecord checks the structural rules of an assembled content
// record. It collects every violation rather than stopping at the first.
func ValidateRecord(rec *types.ContentRecord) error {
	var problems []string

	if strings.TrimSpace(rec.CourseMetadata.CourseID) == "" {
		problems = append(problems, "course_metadata.course_id is empty")
	}
	if strings.TrimSpace(rec.CourseMetadata.Name) == "" {
		problems = append(problems, "course_metadata.name is empty")
	}

	seenSkillCodes := make(map[string]bool)
	for i, cat := range rec.Skills {
		if strings.TrimSpace(cat.Name) == "" {
			problems = append(problems, fmt.Sprintf("skills[%d].name is empty", i))
		}
		for j, sub := range cat.Subskills {
			if !ValidSkillCode(sub.Code) {
				problems = append(problems, fmt.Sprintf("skills[%d].subskills[%d]: malformed code %q", i, j, sub.Code))
				continue
			}
			if seenSkillCodes[sub.Code] {
				problems = append(problems, fmt.Sprintf("duplicate skill code %q", sub.Code))
			}
			seenSkillCodes[sub.Code] = true
		}
	}

	seenBigIdeas := make(map[string]bool)
	for i, bi := range rec.BigIdeas {
		if !ValidBigIdeaID(bi.ID) {
			problems = append(problems, fmt.Sprintf("big_ideas[%d]: malformed id %q", i, bi.ID))
			continue
		}
		if seenBigIdeas[bi.ID] {
			problems = append(problems, fmt.Sprintf("duplicate big idea id %q", bi.ID))
		}
		seenBigIdeas[bi.ID] = true
	}

	if len(rec.Units) == 0 {
		problems = append(problems, "no units extracted")
	}

	seenLOs := make(map[string]bool)
	for i, unit := range rec.Units {
		if strings.TrimSpace(unit.Name) == "" {
			problems = append(problems, fmt.Sprintf("units[%d].name is empty", i))
		}
		if len(unit.Topics) == 0 {
			problems = append(problems, fmt.Sprintf("units[%d] (%s) has no topics", i, unit.Name))
		}
		for j, topic := range unit.Topics {
			loc := fmt.Sprintf("units[%d].topics[%d]", i, j)
			if strings.TrimSpace(topic.Name) == "" {
				problems = append(problems, loc+".name is empty")
			}
			for _, ref := range topic.BigIdeaRefs {
				if !ValidBigIdeaRef(ref) {
					problems = append(problems, fmt.Sprintf("%s: malformed big idea ref %q", loc, ref))
				} else if len(seenBigIdeas) > 0 && !seenBigIdeas[bigIdeaPrefix(ref)] {
					problems = append(problems, fmt.Sprintf("%s: big idea ref %q has no matching big idea", loc, ref))
				}
			}
			for _, code := range topic.SkillCodes {
				if !ValidSkillCode(code) {
					problems = append(problems, fmt.Sprintf("%s: malformed skill code %q", loc, code))
				} else if len(seenSkillCodes) > 0 && !seenSkillCodes[code] {
					problems = append(problems, fmt.Sprintf("%s: skill code %q not in skills section", loc, code))
				}
			}
			if len(topic.LearningObjectives) == 0 {
				problems = append(problems, loc+" has no learning objectives")
			}
			for k, lo := range topic.LearningObjectives {
				if !ValidLearningObjectiveID(lo.ID) {
					problems = append(problems, fmt.Sprintf("%s.learning_objectives[%d]: malformed id %q", loc, k, lo.ID))
					continue
				}
				if seenLOs[lo.ID] {
					problems = append(problems, fmt.Sprintf("duplicate learning objective id %q", lo.ID))
				}
				seenLOs[lo.ID] = true
				if strings.TrimSpace(lo.Description) == "" {
					problems = append(problems, fmt.Sprintf("%s.learning_objectives[%d] (%s): description is empty", loc, k, lo.ID))
				}
			}
		}
	}

	for i, sec := range rec.ExamSections {
		if sec.Section != "I" && sec.Section != "II" {
			problems = append(problems, fmt.Sprintf("exam_sections[%d]: unknown section %q", i, sec.Section))
		}
	}

	if len(problems) > 0 {
		return &RecordError{Problems: problems}
	}
	return nil
}

func bigIdeaPrefix(ref string) string {
	if idx := strings.IndexByte(ref, '-'); idx > 0 {
		return ref[:idx]
	}
	return ref
}
