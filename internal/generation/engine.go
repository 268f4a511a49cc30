// Package generation drives question generation for a unit: it requests
// candidate questions from an inference client, validates each one,
// suppresses duplicates, and retries shortfalls up to a bound before
// abandoning them.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/prompts"
	"github.com/jonathan/exam-compiler/internal/schemas"
	"github.com/jonathan/exam-compiler/internal/types"
	"github.com/jonathan/exam-compiler/internal/validation"
)

// StimulusResolver materializes or verifies a candidate's stimulus before
// acceptance. kind is the stimulus kind the run's policy selected for
// this question.
type StimulusResolver interface {
	Resolve(ctx context.Context, c *types.QuestionCandidate, p *types.UnitPayload, kind string) error
}

// Options configures a generation engine.
type Options struct {
	BatchSize              int
	RetryBound             int
	NumChoices             int
	MinParts               int
	MaxParts               int
	DifficultyDistribution map[string]float64
	PriorityLOCount        int
}

// RunSummary reports what one unit's generation actually delivered.
// Shortfalls are recorded here rather than surfaced as errors.
type RunSummary struct {
	UnitID       string
	RequestedMCQ int
	DeliveredMCQ int
	RequestedFRQ int
	DeliveredFRQ int
	Rejected     int
	Duplicates   int
	Abandoned    int
}

// Shortfall is the total number of requested questions not delivered.
func (s *RunSummary) Shortfall() int {
	return (s.RequestedMCQ - s.DeliveredMCQ) + (s.RequestedFRQ - s.DeliveredFRQ)
}

// Engine generates questions for units against a fixed configuration.
type Engine struct {
	client   llm.Client
	opts     Options
	rules    validation.QuestionRules
	resolver StimulusResolver
}

// NewEngine creates an engine. resolver may be nil, in which case
// model-supplied stimuli are kept as-is and none are synthesized.
func NewEngine(client llm.Client, opts Options, resolver StimulusResolver) *Engine {
	if opts.BatchSize < 1 {
		opts.BatchSize = 5
	}
	if opts.RetryBound < 1 {
		opts.RetryBound = 3
	}
	if opts.PriorityLOCount < 1 {
		opts.PriorityLOCount = 10
	}
	return &Engine{
		client: client,
		opts:   opts,
		rules: validation.QuestionRules{
			NumChoices:    opts.NumChoices,
			MinParts:      opts.MinParts,
			MaxParts:      opts.MaxParts,
			StimulusKinds: nil,
		},
		resolver: resolver,
	}
}

// GenerateUnit produces up to mcqCount multiple-choice and frqCount
// free-response questions for one unit. Cancelling the context stops new
// requests; questions already accepted are returned alongside the
// context error.
func (e *Engine) GenerateUnit(ctx context.Context, p *types.UnitPayload, mcqCount, frqCount int, coverage *CoverageTracker, dedupe *DuplicateDetector) ([]types.AcceptedQuestion, *RunSummary, error) {
	summary := &RunSummary{
		UnitID:       p.UnitID,
		RequestedMCQ: mcqCount,
		RequestedFRQ: frqCount,
	}

	var accepted []types.AcceptedQuestion

	mcqs, err := e.generateMCQs(ctx, p, mcqCount, coverage, dedupe, summary)
	accepted = append(accepted, mcqs...)
	if err != nil {
		summary.Abandoned += summary.Shortfall()
		return accepted, summary, err
	}

	frqs, err := e.generateFRQs(ctx, p, frqCount, coverage, dedupe, summary)
	accepted = append(accepted, frqs...)
	if err != nil {
		summary.Abandoned += summary.Shortfall()
		return accepted, summary, err
	}

	summary.Abandoned = summary.Shortfall()
	return accepted, summary, nil
}

func (e *Engine) generateMCQs(ctx context.Context, p *types.UnitPayload, target int, coverage *CoverageTracker, dedupe *DuplicateDetector, summary *RunSummary) ([]types.AcceptedQuestion, error) {
	if target <= 0 {
		return nil, nil
	}

	template, err := prompts.Get("generate.json", "mcq_batch")
	if err != nil {
		return nil, err
	}
	repair, err := prompts.Get("generate.json", "repair_suffix")
	if err != nil {
		return nil, err
	}

	unitContext := BuildUnitContext(p, types.QuestionTypeMCQ)
	loPool := loIDs(p)

	var accepted []types.AcceptedQuestion
	var stems []string
	var rejections []error

	for round := 0; round <= e.opts.RetryBound && len(accepted) < target; round++ {
		if err := ctx.Err(); err != nil {
			summary.DeliveredMCQ = len(accepted)
			return accepted, err
		}

		missing := target - len(accepted)
		plan := missing
		if round > 0 {
			plan = missing + overAsk(missing)
		}

		repairSuffix := ""
		if round > 0 && len(rejections) > 0 {
			repairSuffix = prompts.Format(repair, map[string]string{
				"Problems": validation.SummarizeRejections(rejections),
			})
			rejections = nil
		}

		// A round may take several requests when the plan exceeds the
		// batch size.
		var candidates []*types.QuestionCandidate
		for plan > 0 {
			if err := ctx.Err(); err != nil {
				summary.DeliveredMCQ = len(accepted)
				return accepted, err
			}
			count := plan
			if count > e.opts.BatchSize {
				count = e.opts.BatchSize
			}
			plan -= count

			data := map[string]string{
				"CourseName":           p.CourseName,
				"Count":                fmt.Sprintf("%d", count),
				"NumChoices":           fmt.Sprintf("%d", e.opts.NumChoices),
				"DifficultyGuidance":   formatDifficultyGuidance(e.opts.DifficultyDistribution),
				"PriorityLOs":          strings.Join(coverage.PriorityLOs(loPool, e.opts.PriorityLOCount), ","),
				"AvoidList":            formatAvoidList(stems),
				"UnitContext":          unitContext,
				"StimulusInstructions": e.stimulusInstructions(p, types.QuestionTypeMCQ),
			}
			prompt := prompts.Format(template, data) + repairSuffix

			raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierStandard)
			if err != nil {
				continue
			}
			parsed, err := parseCandidates(raw, types.QuestionTypeMCQ, p.UnitID, round)
			if err != nil {
				continue
			}
			candidates = append(candidates, parsed...)
		}

		for _, c := range candidates {
			if len(accepted) >= target {
				break
			}
			q, reject := e.screen(ctx, c, p, dedupe, summary)
			if reject != nil {
				rejections = append(rejections, reject)
				continue
			}
			q.SequenceIndex = len(accepted)
			q.ID = fmt.Sprintf("%s_MCQ_U%dQ%d", p.CourseID, p.UnitIndex+1, len(accepted)+1)
			accepted = append(accepted, *q)
			stems = append(stems, c.Stem())
			coverage.Record(c.LearningObjectiveIDs)
		}
	}

	summary.DeliveredMCQ = len(accepted)
	return accepted, nil
}

func (e *Engine) generateFRQs(ctx context.Context, p *types.UnitPayload, target int, coverage *CoverageTracker, dedupe *DuplicateDetector, summary *RunSummary) ([]types.AcceptedQuestion, error) {
	if target <= 0 {
		return nil, nil
	}

	template, err := prompts.Get("generate.json", "frq_single")
	if err != nil {
		return nil, err
	}
	repair, err := prompts.Get("generate.json", "repair_suffix")
	if err != nil {
		return nil, err
	}

	unitContext := BuildUnitContext(p, types.QuestionTypeFRQ)
	loPool := loIDs(p)

	var accepted []types.AcceptedQuestion
	var stems []string

	for i := 0; i < target; i++ {
		difficulty := pickDifficulty(e.opts.DifficultyDistribution, i, target)
		var rejections []error
		done := false

		for round := 0; round <= e.opts.RetryBound && !done; round++ {
			if err := ctx.Err(); err != nil {
				summary.DeliveredFRQ = len(accepted)
				return accepted, err
			}

			data := map[string]string{
				"CourseName":           p.CourseName,
				"MinParts":             fmt.Sprintf("%d", e.opts.MinParts),
				"MaxParts":             fmt.Sprintf("%d", e.opts.MaxParts),
				"Difficulty":           difficulty,
				"PriorityLOs":          strings.Join(coverage.PriorityLOs(loPool, e.opts.PriorityLOCount), ","),
				"AvoidList":            formatAvoidList(stems),
				"UnitContext":          unitContext,
				"StimulusInstructions": e.stimulusInstructions(p, types.QuestionTypeFRQ),
			}
			prompt := prompts.Format(template, data)
			if round > 0 && len(rejections) > 0 {
				prompt += prompts.Format(repair, map[string]string{
					"Problems": validation.SummarizeRejections(rejections),
				})
				rejections = nil
			}

			raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
			if err != nil {
				continue
			}

			candidates, err := parseCandidates(raw, types.QuestionTypeFRQ, p.UnitID, round)
			if err != nil {
				continue
			}

			for _, c := range candidates {
				q, reject := e.screen(ctx, c, p, dedupe, summary)
				if reject != nil {
					rejections = append(rejections, reject)
					continue
				}
				q.SequenceIndex = len(accepted)
				q.ID = fmt.Sprintf("%s_FRQ_U%dQ%d", p.CourseID, p.UnitIndex+1, len(accepted)+1)
				accepted = append(accepted, *q)
				stems = append(stems, c.Stem())
				coverage.Record(c.LearningObjectiveIDs)
				done = true
				break
			}
		}
	}

	summary.DeliveredFRQ = len(accepted)
	return accepted, nil
}

// screen runs a candidate through schema and semantic validation,
// duplicate suppression, and stimulus resolution. A nil error means the
// candidate is accepted; its stem is recorded for duplicate detection
// only then, so a candidate rejected late does not shadow its retries.
func (e *Engine) screen(ctx context.Context, c *types.QuestionCandidate, p *types.UnitPayload, dedupe *DuplicateDetector, summary *RunSummary) (*types.AcceptedQuestion, error) {
	if err := e.checkSchema(c); err != nil {
		summary.Rejected++
		return nil, err
	}

	rules := e.rules
	rules.StimulusKinds = p.Stimulus.AllowedKinds

	if err := rules.ValidateCandidate(c, p); err != nil {
		summary.Rejected++
		return nil, err
	}

	if dedupe.Check(c.Stem()) {
		summary.Duplicates++
		return nil, &DuplicateError{Stem: c.Stem()}
	}

	if e.resolver != nil {
		if kind, want := e.wantStimulus(p, c); want {
			if err := e.resolver.Resolve(ctx, c, p, kind); err != nil {
				summary.Rejected++
				return nil, &validation.QuestionError{Reasons: []string{fmt.Sprintf("stimulus could not be produced: %v", err)}}
			}
		}
	}

	dedupe.Add(c.Stem())

	q := &types.AcceptedQuestion{
		UnitID:               p.UnitID,
		Type:                 c.Type,
		Difficulty:           c.Difficulty,
		SkillCodes:           c.SkillCodes,
		LearningObjectiveIDs: c.LearningObjectiveIDs,
		Question:             c.Question,
		Choices:              c.Choices,
		Context:              c.Context,
		Parts:                c.Parts,
		ScoringGuidelines:    c.ScoringGuidelines,
		Stimulus:             c.Stimulus,
	}
	if c.Type == types.QuestionTypeMCQ {
		idx := c.CorrectChoiceIndex
		q.CorrectChoiceIndex = &idx
	}
	return q, nil
}

// checkSchema validates a candidate's JSON form against the schema for
// its question kind.
func (e *Engine) checkSchema(c *types.QuestionCandidate) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return &validation.QuestionError{Reasons: []string{fmt.Sprintf("candidate could not be encoded: %v", err)}}
	}

	check := schemas.ValidateMCQ
	if c.Type == types.QuestionTypeFRQ {
		check = schemas.ValidateFRQ
	}
	err = check(string(doc))
	if err == nil {
		return nil
	}

	var ve *schemas.ValidationError
	if errors.As(err, &ve) {
		reasons := make([]string, 0, len(ve.Errors))
		for _, fe := range ve.Errors {
			reasons = append(reasons, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
		}
		return &validation.QuestionError{Reasons: reasons}
	}
	return err
}

// wantStimulus decides whether this candidate should carry a stimulus
// and of which kind. Forced kinds always apply; otherwise the policy
// ratio is honored by attaching to candidates the model already gave a
// stimulus, or to none.
func (e *Engine) wantStimulus(p *types.UnitPayload, c *types.QuestionCandidate) (string, bool) {
	if kind, ok := p.Stimulus.ForcedKinds[c.Type]; ok {
		return kind, true
	}
	if c.Stimulus != nil && p.Stimulus.Ratio > 0 {
		return c.Stimulus.Kind, true
	}
	return "", false
}

// stimulusInstructions renders the prompt block that asks the model to
// attach stimuli, or an empty string when the policy asks for none.
func (e *Engine) stimulusInstructions(p *types.UnitPayload, qt types.QuestionType) string {
	forced, hasForced := p.Stimulus.ForcedKinds[qt]
	if !hasForced && p.Stimulus.Ratio <= 0 {
		return ""
	}

	template, err := prompts.Get("generate.json", "stimulus_instructions")
	if err != nil {
		return ""
	}

	kinds := p.Stimulus.AllowedKinds
	if hasForced {
		kinds = []string{forced}
	} else if len(kinds) == 0 {
		kinds = []string{"table", "passage", "svg"}
	}

	var rules []string
	for _, kind := range kinds {
		switch kind {
		case "svg":
			rules = append(rules, "  svg: self-contained SVG markup, no scripts, minimal text labels")
		case "table":
			rules = append(rules, "  table: pipe-delimited table with a header row and a dashed separator row")
		case "passage":
			rules = append(rules, "  passage: a 80-200 word reading passage")
		case "image":
			rules = append(rules, "  image: a detailed description of the image to render, not the image itself")
		}
	}

	kind := strings.Join(kinds, " or ")
	ratio := p.Stimulus.Ratio
	if hasForced {
		ratio = 1
	}
	header := fmt.Sprintf("- Roughly %.0f%% of the questions should carry a stimulus\n", ratio*100)

	return header + prompts.Format(template, map[string]string{
		"Kind":      kind,
		"KindRules": strings.Join(rules, "\n"),
	})
}

// overAsk pads a repair request so one round can absorb further
// rejections: small shortfalls get a fixed pad of 3, larger ones half
// again (bounded to 2..10).
func overAsk(missing int) int {
	if missing <= 3 {
		return 3
	}
	buffer := missing / 2
	if buffer < 2 {
		buffer = 2
	}
	if buffer > 10 {
		buffer = 10
	}
	return buffer
}

func loIDs(p *types.UnitPayload) []string {
	ids := make([]string, 0, len(p.LearningObjectives))
	for _, lo := range p.LearningObjectives {
		ids = append(ids, lo.ID)
	}
	return ids
}
