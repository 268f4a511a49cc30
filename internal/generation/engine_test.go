package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-compiler/internal/llm"
	"github.com/jonathan/exam-compiler/internal/types"
)

type queueClient struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	onCall    func(call int)
}

func (q *queueClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	call := len(q.prompts)
	q.prompts = append(q.prompts, prompt)
	if q.onCall != nil {
		q.onCall(call)
	}
	if q.err != nil {
		return "", q.err
	}
	if len(q.responses) == 0 {
		return "[]", nil
	}
	resp := q.responses[0]
	if len(q.responses) > 1 {
		q.responses = q.responses[1:]
	}
	return resp, nil
}

func (q *queueClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return q.GenerateJSON(ctx, prompt, tier)
}

func (q *queueClient) GenerateImage(context.Context, string) ([]byte, string, error) {
	return nil, "", errors.New("not supported")
}

func (q *queueClient) GetModel(llm.ModelTier) string { return "stub" }
func (q *queueClient) Close() error                  { return nil }

func mcq(stem string) map[string]any {
	return map[string]any{
		"difficulty":             "medium",
		"skill_codes":            []string{"1.A"},
		"learning_objective_ids": []string{"VAR-1.A"},
		"question":               stem,
		"choices":                []string{"Mean", "Median", "Range", "IQR"},
		"correct_choice_index":   1,
	}
}

func frq(context string) map[string]any {
	return map[string]any{
		"difficulty":             "medium",
		"skill_codes":            []string{"1.A"},
		"learning_objective_ids": []string{"UNC-1.K"},
		"context":                context,
		"parts": []map[string]string{
			{"label": "a", "prompt": "Justify the choice of population of interest."},
			{"label": "b", "prompt": "Justify your answer using the sampling method."},
		},
		"scoring_guidelines": []string{"1 point for the population.", "1 point for the justification."},
	}
}

func batch(t *testing.T, items ...map[string]any) string {
	t.Helper()
	data, err := json.Marshal(items)
	require.NoError(t, err)
	return string(data)
}

func testOptions() Options {
	return Options{
		BatchSize:  5,
		RetryBound: 3,
		NumChoices: 4,
		MinParts:   2,
		MaxParts:   4,
		DifficultyDistribution: map[string]float64{
			"easy": 0.3, "medium": 0.5, "hard": 0.2,
		},
	}
}

func newTrackers(p *types.UnitPayload) (*CoverageTracker, *DuplicateDetector) {
	return NewCoverageTracker(loIDs(p)), NewDuplicateDetector(0.8)
}

func TestGenerateUnit_AllAcceptedFirstRound(t *testing.T) {
	p := contextPayload()
	client := &queueClient{responses: []string{batch(t,
		mcq("Which plot best displays a skewed distribution of incomes?"),
		mcq("A census differs from a sample in which of the following ways?"),
		mcq("What does the interquartile range measure about a distribution?"),
		mcq("Which statistic is pulled toward the tail of a skewed histogram?"),
		mcq("How does adding a constant to every value change the standard deviation?"),
	)}}

	engine := NewEngine(client, testOptions(), nil)
	coverage, dedupe := newTrackers(p)

	accepted, summary, err := engine.GenerateUnit(context.Background(), p, 5, 0, coverage, dedupe)
	require.NoError(t, err)

	require.Len(t, accepted, 5)
	assert.Equal(t, 5, summary.DeliveredMCQ)
	assert.Equal(t, 0, summary.Shortfall())
	assert.Equal(t, 0, summary.Abandoned)
	assert.Len(t, client.prompts, 1)

	// Sequence indexes follow acceptance order and ids embed unit and position.
	for i, q := range accepted {
		assert.Equal(t, i, q.SequenceIndex)
		assert.Equal(t, fmt.Sprintf("ap_statistics_MCQ_U1Q%d", i+1), q.ID)
		assert.Equal(t, "unit_1", q.UnitID)
		require.NotNil(t, q.CorrectChoiceIndex)
		assert.Equal(t, 1, *q.CorrectChoiceIndex)
	}

	assert.Equal(t, 5, coverage.Count("VAR-1.A"))
}

func TestGenerateUnit_InvalidAndDuplicateRetriedThenShortfall(t *testing.T) {
	p := contextPayload()

	bad := mcq("What is the median of an ordered list with an even number of values?")
	bad["correct_choice_index"] = 9

	first := batch(t,
		mcq("Which plot best displays a skewed distribution of incomes?"),
		mcq("A census differs from a sample in which of the following ways?"),
		mcq("What does the interquartile range measure about a distribution?"),
		mcq("Which plot best displays a skewed distribution of incomes?"), // duplicate
		bad,
	)

	// Every repair round keeps returning the same rejected pair.
	client := &queueClient{responses: []string{first, batch(t,
		mcq("Which plot best displays a skewed distribution of incomes?"),
		bad,
	)}}

	engine := NewEngine(client, testOptions(), nil)
	coverage, dedupe := newTrackers(p)

	accepted, summary, err := engine.GenerateUnit(context.Background(), p, 5, 0, coverage, dedupe)
	require.NoError(t, err)

	assert.Len(t, accepted, 3)
	assert.Equal(t, 3, summary.DeliveredMCQ)
	assert.Equal(t, 2, summary.Shortfall())
	assert.Equal(t, 2, summary.Abandoned)
	assert.GreaterOrEqual(t, summary.Rejected, 1)
	assert.GreaterOrEqual(t, summary.Duplicates, 1)

	// Initial round plus three repair rounds.
	require.Len(t, client.prompts, 4)
	assert.NotContains(t, client.prompts[0], "previous batch contained invalid questions")
	assert.Contains(t, client.prompts[1], "previous batch contained invalid questions")
	assert.Contains(t, client.prompts[1], "out of range")
}

func TestGenerateUnit_ServiceErrorsConsumeRetryBudget(t *testing.T) {
	p := contextPayload()
	client := &queueClient{err: &llm.ServiceError{Message: "unavailable"}}

	engine := NewEngine(client, testOptions(), nil)
	coverage, dedupe := newTrackers(p)

	accepted, summary, err := engine.GenerateUnit(context.Background(), p, 5, 0, coverage, dedupe)
	require.NoError(t, err)

	assert.Empty(t, accepted)
	assert.Equal(t, 5, summary.Abandoned)

	// One call in the first round, then two per repair round once the
	// over-ask buffer pushes the plan past the batch size.
	assert.Len(t, client.prompts, 7)
}

func TestGenerateUnit_CancellationReturnsPartialResults(t *testing.T) {
	p := contextPayload()
	ctx, cancel := context.WithCancel(context.Background())

	client := &queueClient{
		responses: []string{batch(t,
			mcq("Which plot best displays a skewed distribution of incomes?"),
			mcq("A census differs from a sample in which of the following ways?"),
		)},
	}
	client.onCall = func(int) { cancel() }

	engine := NewEngine(client, testOptions(), nil)
	coverage, dedupe := newTrackers(p)

	accepted, summary, err := engine.GenerateUnit(ctx, p, 5, 0, coverage, dedupe)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	// The first response was already in flight; its questions are kept.
	assert.Len(t, accepted, 2)
	assert.Equal(t, 2, summary.DeliveredMCQ)
	assert.Len(t, client.prompts, 1)
}

func TestGenerateUnit_FRQOneAtATime(t *testing.T) {
	p := contextPayload()
	client := &queueClient{responses: []string{
		batch(t, frq("A school board samples households to estimate support for a new budget.")),
		batch(t, frq("A lab compares reaction times under two lighting conditions.")),
	}}

	engine := NewEngine(client, testOptions(), nil)
	coverage, dedupe := newTrackers(p)

	accepted, summary, err := engine.GenerateUnit(context.Background(), p, 0, 2, coverage, dedupe)
	require.NoError(t, err)

	require.Len(t, accepted, 2)
	assert.Equal(t, 2, summary.DeliveredFRQ)
	assert.Equal(t, types.QuestionTypeFRQ, accepted[0].Type)
	assert.Equal(t, "ap_statistics_FRQ_U1Q1", accepted[0].ID)
	assert.Equal(t, "ap_statistics_FRQ_U1Q2", accepted[1].ID)
	assert.Nil(t, accepted[0].CorrectChoiceIndex)
	assert.Len(t, client.prompts, 2)
}

func TestGenerateUnit_FRQRetryBound(t *testing.T) {
	p := contextPayload()

	invalid := frq("A nutritionist compares two diets over eight weeks.")
	invalid["parts"] = []map[string]string{
		{"label": "a", "prompt": "What happens next?"}, // no task verb
	}

	client := &queueClient{responses: []string{batch(t, invalid)}}

	engine := NewEngine(client, testOptions(), nil)
	coverage, dedupe := newTrackers(p)

	accepted, summary, err := engine.GenerateUnit(context.Background(), p, 0, 1, coverage, dedupe)
	require.NoError(t, err)

	assert.Empty(t, accepted)
	assert.Equal(t, 1, summary.Abandoned)
	assert.Len(t, client.prompts, 4)
	assert.Contains(t, client.prompts[1], "task verb")
}

type fixedResolver struct {
	calls    int
	kinds    []string
	failures int // number of leading calls that fail
}

func (r *fixedResolver) Resolve(_ context.Context, c *types.QuestionCandidate, _ *types.UnitPayload, kind string) error {
	r.calls++
	r.kinds = append(r.kinds, kind)
	if r.calls <= r.failures {
		return errors.New("render failed")
	}
	c.Stimulus = &types.Stimulus{Kind: kind, Content: "| a | b |\n| - | - |\n| 1 | 2 |"}
	return nil
}

func TestGenerateUnit_ForcedStimulusResolved(t *testing.T) {
	p := contextPayload()
	p.Stimulus = types.StimulusPolicy{
		Ratio:       1,
		ForcedKinds: map[types.QuestionType]string{types.QuestionTypeMCQ: "table"},
	}

	client := &queueClient{responses: []string{batch(t,
		mcq("Which plot best displays a skewed distribution of incomes?"),
	)}}
	resolver := &fixedResolver{}

	engine := NewEngine(client, testOptions(), resolver)
	coverage, dedupe := newTrackers(p)

	accepted, _, err := engine.GenerateUnit(context.Background(), p, 1, 0, coverage, dedupe)
	require.NoError(t, err)

	require.Len(t, accepted, 1)
	assert.Equal(t, 1, resolver.calls)
	assert.Equal(t, []string{"table"}, resolver.kinds)
	require.NotNil(t, accepted[0].Stimulus)
	assert.Equal(t, "table", accepted[0].Stimulus.Kind)

	assert.Contains(t, client.prompts[0], "stimulus")
}

func TestGenerateUnit_StimulusFailureRejectsCandidate(t *testing.T) {
	p := contextPayload()
	p.Stimulus = types.StimulusPolicy{
		Ratio:       1,
		ForcedKinds: map[types.QuestionType]string{types.QuestionTypeMCQ: "svg"},
	}

	client := &queueClient{responses: []string{batch(t,
		mcq("Which plot best displays a skewed distribution of incomes?"),
	)}}
	resolver := &fixedResolver{failures: 1 << 30}

	engine := NewEngine(client, testOptions(), resolver)
	coverage, dedupe := newTrackers(p)

	accepted, summary, err := engine.GenerateUnit(context.Background(), p, 1, 0, coverage, dedupe)
	require.NoError(t, err)

	assert.Empty(t, accepted)
	assert.Equal(t, 1, summary.Abandoned)
	assert.GreaterOrEqual(t, summary.Rejected, 1)
}

func TestGenerateUnit_DuplicateScopeIsPerUnit(t *testing.T) {
	p1 := contextPayload()
	p2 := contextPayload()
	p2.UnitID = "unit_2"
	p2.UnitIndex = 1

	// Each unit carries its own detector, so the same stem may be accepted
	// once per unit.
	stem := "Which plot best displays a skewed distribution of incomes?"

	client1 := &queueClient{responses: []string{batch(t, mcq(stem))}}
	engine1 := NewEngine(client1, testOptions(), nil)
	accepted1, _, err := engine1.GenerateUnit(context.Background(), p1, 1, 0,
		NewCoverageTracker(loIDs(p1)), NewDuplicateDetector(0.8))
	require.NoError(t, err)
	require.Len(t, accepted1, 1)

	client2 := &queueClient{responses: []string{batch(t, mcq(stem))}}
	engine2 := NewEngine(client2, testOptions(), nil)
	accepted2, summary2, err := engine2.GenerateUnit(context.Background(), p2, 1, 0,
		NewCoverageTracker(loIDs(p2)), NewDuplicateDetector(0.8))
	require.NoError(t, err)

	require.Len(t, accepted2, 1)
	assert.Equal(t, 0, summary2.Duplicates)
	assert.Equal(t, "ap_statistics_MCQ_U2Q1", accepted2[0].ID)
}

func TestGenerateUnit_StimulusRetryNotMarkedDuplicate(t *testing.T) {
	p := contextPayload()
	p.Stimulus = types.StimulusPolicy{
		Ratio:       1,
		ForcedKinds: map[types.QuestionType]string{types.QuestionTypeMCQ: "table"},
	}

	// The client replays the same candidate each round; the resolver fails
	// once and then succeeds. The retry must not be suppressed against the
	// failed attempt's stem.
	client := &queueClient{responses: []string{batch(t,
		mcq("Which plot best displays a skewed distribution of incomes?"),
	)}}
	resolver := &fixedResolver{failures: 1}

	engine := NewEngine(client, testOptions(), resolver)
	coverage, dedupe := newTrackers(p)

	accepted, summary, err := engine.GenerateUnit(context.Background(), p, 1, 0, coverage, dedupe)
	require.NoError(t, err)

	require.Len(t, accepted, 1)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 0, summary.Abandoned)
	require.NotNil(t, accepted[0].Stimulus)
	assert.Equal(t, "table", accepted[0].Stimulus.Kind)
}

func TestGenerateUnit_SchemaRejectsBlankStimulusKind(t *testing.T) {
	p := contextPayload()

	withStim := mcq("Which plot best displays a skewed distribution of incomes?")
	withStim["stimulus"] = map[string]string{"kind": "", "content": "| a | b |\n| - | - |\n| 1 | 2 |"}

	client := &queueClient{responses: []string{
		batch(t, withStim),
		batch(t, mcq("A census differs from a sample in which of the following ways?")),
	}}

	engine := NewEngine(client, testOptions(), nil)
	coverage, dedupe := newTrackers(p)

	accepted, summary, err := engine.GenerateUnit(context.Background(), p, 1, 0, coverage, dedupe)
	require.NoError(t, err)

	require.Len(t, accepted, 1)
	assert.Equal(t, "A census differs from a sample in which of the following ways?", accepted[0].Question)
	assert.Equal(t, 1, summary.Rejected)

	// The repair round names the offending field.
	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[1], "stimulus.kind")
}
