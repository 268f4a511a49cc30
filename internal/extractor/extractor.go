// Package extractor turns located document sections into a structured
// content record, one inference request per section with bounded
// retries.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/locator"
	"github.com/jonathan/exam-compiler/internal/prompts"
	"github.com/jonathan/exam-compiler/internal/types"
	"github.com/jonathan/exam-compiler/internal/validation"
)

// Extractor runs section extraction against an inference client.
type Extractor struct {
	client      llm.Client
	retryBound  int
	concurrency int
}

// New creates an Extractor. retryBound is the total number of attempts
// allowed per section; concurrency bounds how many sections are
// extracted at once.
func New(client llm.Client, retryBound, concurrency int) *Extractor {
	if retryBound < 1 {
		retryBound = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{client: client, retryBound: retryBound, concurrency: concurrency}
}

// ExtractRecord extracts every resolved section of the document and
// assembles a content record. Sections run concurrently. A section that
// exhausts its retries is omitted from the record and reported in the
// returned failure list; the remaining sections still land. Only
// cancellation or a missing prompt template fails the extraction as a
// whole.
func (e *Extractor) ExtractRecord(ctx context.Context, document, courseID, courseName string, m *types.SectionMap) (*types.ContentRecord, []*ExtractionFailedError, error) {
	rec := &types.ContentRecord{
		CourseMetadata: types.CourseMetadata{
			CourseID:         courseID,
			Name:             courseName,
			ExtractionMethod: "llm_sectioned",
			ExtractionDate:   time.Now().UTC().Format("2006-01-02"),
		},
	}

	var mu sync.Mutex
	failed := make(map[types.SectionKey]*ExtractionFailedError)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, key := range types.AllSectionKeys {
		boundary, ok := m.Resolved[key]
		if !ok {
			continue
		}
		key := key
		excerpt := locator.Excerpt(document, boundary)
		g.Go(func() error {
			apply, err := e.extractSection(gctx, key, excerpt)
			if err != nil {
				var xf *ExtractionFailedError
				if errors.As(err, &xf) {
					mu.Lock()
					failed[key] = xf
					mu.Unlock()
					return nil
				}
				return err
			}
			mu.Lock()
			apply(rec)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i := range rec.Units {
		rec.Units[i].ID = fmt.Sprintf("unit_%d", i+1)
	}

	var omitted []*ExtractionFailedError
	for _, key := range types.AllSectionKeys {
		if xf, ok := failed[key]; ok {
			omitted = append(omitted, xf)
		}
	}
	return rec, omitted, nil
}

// extractSection requests one section and parses the response, retrying
// with a refined prompt that lists the previous attempt's problems.
func (e *Extractor) extractSection(ctx context.Context, key types.SectionKey, excerpt string) (func(*types.ContentRecord), error) {
	template, err := prompts.Get("extract.json", string(key))
	if err != nil {
		return nil, err
	}
	base := prompts.Format(template, map[string]string{"Excerpt": excerpt})

	refinement, err := prompts.Get("extract.json", "retry_refinement")
	if err != nil {
		return nil, err
	}

	var lastProblems []string
	var lastErr error
	for attempt := 1; attempt <= e.retryBound; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prompt := base
		if len(lastProblems) > 0 {
			prompt += prompts.Format(refinement, map[string]string{
				"Problems": "- " + strings.Join(lastProblems, "\n- "),
			})
		}

		raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
		if err != nil {
			lastErr = err
			lastProblems = nil
			continue
		}

		apply, problems := parseSection(key, llm.CleanJSONBlock(raw))
		if len(problems) == 0 {
			return apply, nil
		}
		lastProblems = problems
		lastErr = nil
	}

	return nil, &ExtractionFailedError{
		Section:  key,
		Attempts: e.retryBound,
		Problems: lastProblems,
		Cause:    lastErr,
	}
}

// parseSection decodes and normalizes one section response. A non-empty
// problems slice means the attempt is rejected and retried.
func parseSection(key types.SectionKey, raw string) (func(*types.ContentRecord), []string) {
	switch key {
	case types.SectionSkills:
		return parseSkills(raw)
	case types.SectionBigIdeas:
		return parseBigIdeas(raw)
	case types.SectionUnits:
		return parseUnits(raw)
	case types.SectionExamSections:
		return parseExamSections(raw)
	case types.SectionTaskVerbs:
		return parseTaskVerbs(raw)
	default:
		return nil, []string{fmt.Sprintf("unknown section %q", key)}
	}
}

func parseSkills(raw string) (func(*types.ContentRecord), []string) {
	var resp struct {
		Skills []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Subskills   []struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"subskills"`
		} `json:"skills"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, []string{"response was not valid JSON for the skills schema"}
	}

	var problems []string
	var skills []types.SkillCategory
	for i, cat := range resp.Skills {
		name := cleanText(cat.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("skills[%d] has an empty name", i))
			continue
		}
		sc := types.SkillCategory{Name: name, Description: cleanText(cat.Description)}
		for j, sub := range cat.Subskills {
			code := strings.ToUpper(strings.TrimSpace(sub.Code))
			if !validation.ValidSkillCode(code) {
				problems = append(problems, fmt.Sprintf("skills[%d].subskills[%d]: code %q is not of the form 1.A", i, j, sub.Code))
				continue
			}
			sc.Subskills = append(sc.Subskills, types.Subskill{
				Code:        code,
				Description: cleanText(sub.Description),
			})
		}
		if len(sc.Subskills) == 0 {
			problems = append(problems, fmt.Sprintf("skill category %q has no subskills", name))
		}
		skills = append(skills, sc)
	}
	if len(skills) == 0 {
		problems = append(problems, "no skills extracted")
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return func(rec *types.ContentRecord) { rec.Skills = skills }, nil
}

func parseBigIdeas(raw string) (func(*types.ContentRecord), []string) {
	var resp struct {
		BigIdeas []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"big_ideas"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, []string{"response was not valid JSON for the big ideas schema"}
	}

	var problems []string
	var ideas []types.BigIdea
	for i, bi := range resp.BigIdeas {
		id := strings.ToUpper(strings.TrimSpace(bi.ID))
		if !validation.ValidBigIdeaID(id) {
			problems = append(problems, fmt.Sprintf("big_ideas[%d]: id %q is not a 2-4 letter code", i, bi.ID))
			continue
		}
		ideas = append(ideas, types.BigIdea{
			ID:          id,
			Name:        cleanText(bi.Name),
			Description: cleanText(bi.Description),
		})
	}
	if len(ideas) == 0 {
		problems = append(problems, "no big ideas extracted")
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return func(rec *types.ContentRecord) { rec.BigIdeas = ideas }, nil
}

func parseUnits(raw string) (func(*types.ContentRecord), []string) {
	var resp struct {
		Units []struct {
			Name                    string `json:"name"`
			DevelopingUnderstanding string `json:"developing_understanding"`
			BuildingPractices       string `json:"building_practices"`
			PreparingForExam        string `json:"preparing_for_exam"`
			Topics                  []struct {
				Name                string   `json:"name"`
				BigIdeas            []string `json:"big_ideas"`
				SuggestedSkillCodes []string `json:"suggested_skill_codes"`
				LearningObjectives  []struct {
					ID                 string   `json:"id"`
					Description        string   `json:"description"`
					EssentialKnowledge []string `json:"essential_knowledge"`
				} `json:"learning_objectives"`
			} `json:"topics"`
		} `json:"units"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, []string{"response was not valid JSON for the units schema"}
	}

	var problems []string
	var units []types.Unit
	for i, u := range resp.Units {
		name := cleanText(u.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("units[%d] has an empty name", i))
			continue
		}
		unit := types.Unit{
			Name:                    name,
			DevelopingUnderstanding: cleanText(u.DevelopingUnderstanding),
			BuildingPractices:       cleanText(u.BuildingPractices),
			PreparingForExam:        cleanText(u.PreparingForExam),
		}
		for j, tp := range u.Topics {
			topicName := cleanText(tp.Name)
			if topicName == "" {
				problems = append(problems, fmt.Sprintf("units[%d].topics[%d] has an empty name", i, j))
				continue
			}
			topic := types.Topic{Name: topicName}
			for _, ref := range tp.BigIdeas {
				ref = strings.ToUpper(strings.TrimSpace(ref))
				if !validation.ValidBigIdeaRef(ref) {
					problems = append(problems, fmt.Sprintf("topic %q: big idea ref %q is not of the form VAR-1", topicName, ref))
					continue
				}
				topic.BigIdeaRefs = append(topic.BigIdeaRefs, ref)
			}
			for _, code := range tp.SuggestedSkillCodes {
				code = strings.ToUpper(strings.TrimSpace(code))
				if !validation.ValidSkillCode(code) {
					problems = append(problems, fmt.Sprintf("topic %q: skill code %q is not of the form 1.A", topicName, code))
					continue
				}
				topic.SkillCodes = append(topic.SkillCodes, code)
			}
			for k, lo := range tp.LearningObjectives {
				id := strings.ToUpper(strings.TrimSpace(lo.ID))
				if !validation.ValidLearningObjectiveID(id) {
					problems = append(problems, fmt.Sprintf("topic %q: learning objective %d id %q is not of the form VAR-1.A", topicName, k, lo.ID))
					continue
				}
				obj := types.LearningObjective{ID: id, Description: cleanText(lo.Description)}
				for _, ek := range lo.EssentialKnowledge {
					if s := cleanText(ek); s != "" {
						obj.EssentialKnowledge = append(obj.EssentialKnowledge, s)
					}
				}
				topic.LearningObjectives = append(topic.LearningObjectives, obj)
			}
			if len(topic.LearningObjectives) == 0 {
				problems = append(problems, fmt.Sprintf("topic %q has no learning objectives", topicName))
			}
			unit.Topics = append(unit.Topics, topic)
		}
		if len(unit.Topics) == 0 {
			problems = append(problems, fmt.Sprintf("unit %q has no topics", name))
		}
		units = append(units, unit)
	}
	if len(units) == 0 {
		problems = append(problems, "no units extracted")
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return func(rec *types.ContentRecord) { rec.Units = units }, nil
}

func parseExamSections(raw string) (func(*types.ContentRecord), []string) {
	var resp struct {
		ExamSections []struct {
			Section       string   `json:"section"`
			QuestionType  string   `json:"question_type"`
			NumQuestions  string   `json:"num_questions"`
			ExamWeighting string   `json:"exam_weighting"`
			Timing        string   `json:"timing"`
			Descriptions  []string `json:"descriptions"`
		} `json:"exam_sections"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, []string{"response was not valid JSON for the exam sections schema"}
	}

	var problems []string
	var sections []types.ExamSection
	for i, s := range resp.ExamSections {
		section := strings.TrimSpace(s.Section)
		if section != "I" && section != "II" {
			problems = append(problems, fmt.Sprintf("exam_sections[%d]: section %q must be \"I\" or \"II\"", i, s.Section))
			continue
		}
		es := types.ExamSection{
			Section:       section,
			QuestionType:  cleanText(s.QuestionType),
			NumQuestions:  cleanText(s.NumQuestions),
			ExamWeighting: cleanText(s.ExamWeighting),
			Timing:        cleanText(s.Timing),
		}
		for _, d := range s.Descriptions {
			if t := cleanText(d); t != "" {
				es.Descriptions = append(es.Descriptions, t)
			}
		}
		sections = append(sections, es)
	}
	if len(sections) == 0 {
		problems = append(problems, "no exam sections extracted")
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return func(rec *types.ContentRecord) { rec.ExamSections = sections }, nil
}

func parseTaskVerbs(raw string) (func(*types.ContentRecord), []string) {
	var resp struct {
		TaskVerbs []struct {
			Verb        string `json:"verb"`
			Description string `json:"description"`
		} `json:"task_verbs"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, []string{"response was not valid JSON for the task verbs schema"}
	}

	var problems []string
	var verbs []types.TaskVerb
	for i, tv := range resp.TaskVerbs {
		verb := cleanText(tv.Verb)
		if verb == "" {
			problems = append(problems, fmt.Sprintf("task_verbs[%d] has an empty verb", i))
			continue
		}
		verbs = append(verbs, types.TaskVerb{Verb: verb, Description: cleanText(tv.Description)})
	}
	if len(verbs) == 0 {
		problems = append(problems, "no task verbs extracted")
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return func(rec *types.ContentRecord) { rec.TaskVerbs = verbs }, nil
}

// cleanText trims and collapses runs of whitespace to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
