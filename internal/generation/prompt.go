package generation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/exam-compiler/internal/types"
)

const maxTaskVerbDescChars = 100

// BuildUnitContext renders a unit payload into the compact context block
// the generation prompts embed. Sections appear in a fixed order and all
// collections are sorted, so the same payload always yields the same
// context.
func BuildUnitContext(p *types.UnitPayload, qt types.QuestionType) string {
	var lines []string

	lines = append(lines,
		fmt.Sprintf("%s | Unit %d: %s", p.CourseName, p.UnitIndex+1, p.UnitName),
		"")

	if sec := p.ExamSectionFor(qt); sec != nil && len(sec.Descriptions) > 0 {
		lines = append(lines, "EXAM_CONTEXT:")
		for _, d := range sec.Descriptions {
			lines = append(lines, "- "+d)
		}
		lines = append(lines, "")
	}

	skillCodes := make([]string, 0, len(p.Skills))
	var skillDescs []string
	for _, s := range p.Skills {
		skillCodes = append(skillCodes, s.Code)
		if s.Description != "" {
			skillDescs = append(skillDescs, fmt.Sprintf("%s=%s", s.Code, s.Description))
		}
	}
	sort.Strings(skillCodes)
	sort.Strings(skillDescs)
	lines = append(lines, "ALLOWED_SKILLS: "+strings.Join(skillCodes, ","))
	if len(skillDescs) > 0 {
		lines = append(lines, "ALLOWED_SKILL_DESC: "+strings.Join(skillDescs, " ; "))
	}

	loIDs := make([]string, 0, len(p.LearningObjectives))
	for _, lo := range p.LearningObjectives {
		loIDs = append(loIDs, lo.ID)
	}
	sort.Strings(loIDs)
	lines = append(lines, "", "ALLOWED_LOS: "+strings.Join(loIDs, ","))

	if len(p.BigIdeas) > 0 {
		ids := make([]string, 0, len(p.BigIdeas))
		for _, bi := range p.BigIdeas {
			ids = append(ids, bi.ID)
		}
		sort.Strings(ids)
		lines = append(lines, "", "BIG_IDEAS: "+strings.Join(ids, ","), "BIG_IDEAS_DESC:")
		byID := make(map[string]types.BigIdea, len(p.BigIdeas))
		for _, bi := range p.BigIdeas {
			byID[bi.ID] = bi
		}
		for _, id := range ids {
			bi := byID[id]
			if bi.Name != "" {
				lines = append(lines, fmt.Sprintf("%s (%s): %s", bi.ID, bi.Name, bi.Description))
			} else {
				lines = append(lines, fmt.Sprintf("%s: %s", bi.ID, bi.Description))
			}
		}
	}

	lines = append(lines, "", "TOPICS_AND_LOS:")
	for i, topic := range p.Topics {
		skills := "-"
		if len(topic.SkillCodes) > 0 {
			skills = strings.Join(topic.SkillCodes, ",")
		}
		big := "-"
		if len(topic.BigIdeaRefs) > 0 {
			big = strings.Join(topic.BigIdeaRefs, ",")
		}
		lines = append(lines, fmt.Sprintf("T%d %s | skills:%s | big:%s", i+1, topic.Name, skills, big))
		for _, lo := range topic.LearningObjectives {
			lines = append(lines, fmt.Sprintf("%s: %s", lo.ID, lo.Description))
		}
	}

	if qt == types.QuestionTypeFRQ && len(p.TaskVerbs) > 0 {
		lines = append(lines, "", "TASK_VERBS:")
		for _, tv := range p.TaskVerbs {
			desc := tv.Description
			if len(desc) > maxTaskVerbDescChars {
				desc = desc[:maxTaskVerbDescChars] + "..."
			}
			lines = append(lines, fmt.Sprintf("  %s: %s", tv.Verb, desc))
		}
	}

	return strings.Join(lines, "\n")
}

// formatDifficultyGuidance renders a distribution like
// "30% easy, 50% medium, 20% hard" in a fixed order.
func formatDifficultyGuidance(dist map[string]float64) string {
	var parts []string
	for _, name := range []string{types.DifficultyEasy, types.DifficultyMedium, types.DifficultyHard} {
		if frac, ok := dist[name]; ok && frac > 0 {
			parts = append(parts, fmt.Sprintf("%.0f%% %s", frac*100, name))
		}
	}
	if len(parts) == 0 {
		return "a balanced mix of easy, medium, and hard"
	}
	return strings.Join(parts, ", ")
}

// pickDifficulty chooses the difficulty for the i-th question of n so
// the realized counts track the target distribution.
func pickDifficulty(dist map[string]float64, i, n int) string {
	if n <= 0 {
		return types.DifficultyMedium
	}
	order := []string{types.DifficultyEasy, types.DifficultyMedium, types.DifficultyHard}
	var cumulative float64
	position := (float64(i) + 0.5) / float64(n)
	for _, name := range order {
		cumulative += dist[name]
		if position < cumulative {
			return name
		}
	}
	return types.DifficultyHard
}

// formatAvoidList renders accepted stems for the duplicate-avoidance
// portion of a prompt.
func formatAvoidList(stems []string) string {
	if len(stems) == 0 {
		return "(none yet)"
	}
	var sb strings.Builder
	for _, stem := range stems {
		sb.WriteString("- ")
		sb.WriteString(stem)
		sb.WriteString("\n")
	}
	return sb.String()
}
