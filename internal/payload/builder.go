// Package payload assembles per-unit generation payloads from a
// validated content record. Building a payload is pure and
// deterministic: the same record always produces byte-identical
// payloads, and any dangling reference fails the build.
package payload

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/exam-compiler/internal/types"
)

// MissingReferenceError indicates a topic referenced a skill or big idea
// the content record does not define.
type MissingReferenceError struct {
	UnitID string
	Kind   string
	Ref    string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("unit %s references unknown %s %q", e.UnitID, e.Kind, e.Ref)
}

// Build resolves one unit of the content record into a generation
// payload. Collections in the result are sorted so repeated builds are
// byte-identical.
func Build(rec *types.ContentRecord, unitIndex int, stimulus types.StimulusPolicy) (*types.UnitPayload, error) {
	if unitIndex < 0 || unitIndex >= len(rec.Units) {
		return nil, fmt.Errorf("unit index %d out of range for %d units", unitIndex, len(rec.Units))
	}
	unit := rec.Units[unitIndex]

	skillsByCode := make(map[string]types.PayloadSkill)
	for _, cat := range rec.Skills {
		for _, sub := range cat.Subskills {
			skillsByCode[sub.Code] = types.PayloadSkill{
				Code:        sub.Code,
				Description: sub.Description,
				Category:    cat.Name,
			}
		}
	}

	bigIdeasByID := make(map[string]types.BigIdea)
	for _, bi := range rec.BigIdeas {
		bigIdeasByID[bi.ID] = bi
	}

	los := make(map[string]types.LearningObjective)
	skillCodes := make(map[string]bool)
	bigIdeaIDs := make(map[string]bool)

	for _, topic := range unit.Topics {
		for _, lo := range topic.LearningObjectives {
			los[lo.ID] = lo
		}
		for _, code := range topic.SkillCodes {
			if _, ok := skillsByCode[code]; !ok {
				return nil, &MissingReferenceError{UnitID: unit.ID, Kind: "skill code", Ref: code}
			}
			skillCodes[code] = true
		}
		for _, ref := range topic.BigIdeaRefs {
			id := bigIdeaPrefix(ref)
			if _, ok := bigIdeasByID[id]; !ok {
				return nil, &MissingReferenceError{UnitID: unit.ID, Kind: "big idea", Ref: ref}
			}
			bigIdeaIDs[id] = true
		}
	}

	p := &types.UnitPayload{
		CourseID:     rec.CourseMetadata.CourseID,
		CourseName:   rec.CourseMetadata.Name,
		UnitID:       unit.ID,
		UnitName:     unit.Name,
		UnitIndex:    unitIndex,
		Topics:       append([]types.Topic(nil), unit.Topics...),
		ExamSections: append([]types.ExamSection(nil), rec.ExamSections...),
		TaskVerbs:    append([]types.TaskVerb(nil), rec.TaskVerbs...),
		Stimulus:     stimulus,
	}

	for id := range los {
		p.LearningObjectives = append(p.LearningObjectives, los[id])
	}
	sort.Slice(p.LearningObjectives, func(i, j int) bool {
		return p.LearningObjectives[i].ID < p.LearningObjectives[j].ID
	})

	for code := range skillCodes {
		p.Skills = append(p.Skills, skillsByCode[code])
	}
	sort.Slice(p.Skills, func(i, j int) bool {
		return p.Skills[i].Code < p.Skills[j].Code
	})

	for id := range bigIdeaIDs {
		p.BigIdeas = append(p.BigIdeas, bigIdeasByID[id])
	}
	sort.Slice(p.BigIdeas, func(i, j int) bool {
		return p.BigIdeas[i].ID < p.BigIdeas[j].ID
	})

	sort.Slice(p.TaskVerbs, func(i, j int) bool {
		return p.TaskVerbs[i].Verb < p.TaskVerbs[j].Verb
	})

	if len(p.LearningObjectives) == 0 {
		return nil, fmt.Errorf("unit %s has no learning objectives", unit.ID)
	}

	return p, nil
}

// BuildAll builds one payload per unit, in unit order.
func BuildAll(rec *types.ContentRecord, stimulus types.StimulusPolicy) ([]*types.UnitPayload, error) {
	payloads := make([]*types.UnitPayload, 0, len(rec.Units))
	for i := range rec.Units {
		p, err := Build(rec, i, stimulus)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

func bigIdeaPrefix(ref string) string {
	if idx := strings.IndexByte(ref, '-'); idx > 0 {
		return ref[:idx]
	}
	return ref
}
