package novelty

import (
	"context"
	"testing"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator(t *testing.T, mock *MockLLM) (*Evaluator, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return NewEvaluator(mock, s.Concepts, config.DefaultPrompts()), s
}

func event(uri string, concepts ...string) model.Event {
	return model.Event{
		URI:       uri,
		Title:     map[string]string{model.LangEnglish: "Measles outbreak " + uri},
		Summary:   map[string]string{model.LangEnglish: "Cases rise among children."},
		EventDate: "2024-03-10",
		Concepts:  concepts,
	}
}

func TestEvaluate_NoHistorySummarizes(t *testing.T) {
	mock := &MockLLM{Responses: []string{"<bullet> Cases rise\n<bullet> Vaccination urged"}}
	ev, _ := newEvaluator(t, mock)

	got, important, err := ev.Evaluate(context.Background(), event("e1", "measles"), nil)
	require.NoError(t, err)
	assert.True(t, important)
	assert.Equal(t, "\n• Cases rise\n• Vaccination urged", got.Bullets)
	assert.Equal(t, "measles", got.DominantConcept)
	require.Len(t, mock.Prompts, 1)
	assert.False(t, mock.Options[0].JSON)
}

func TestEvaluate_MalformedAnswerRetriesWithoutHistory(t *testing.T) {
	mock := &MockLLM{Responses: []string{
		`{"bullets": "<bullet> more cases", "important": fals`,
		"<bullet> New district affected",
	}}
	ev, _ := newEvaluator(t, mock)
	prior := event("e0", "measles")
	prior.Bullets = "\n• First cases"

	got, important, err := ev.Evaluate(context.Background(), event("e1", "measles"), []model.Event{prior})
	require.NoError(t, err)
	assert.True(t, important)
	assert.Equal(t, "\n• New district affected", got.Bullets)

	require.Len(t, mock.Prompts, 2)
	assert.Contains(t, mock.Prompts[0], "First cases")
	assert.True(t, mock.Options[0].JSON)
	assert.NotContains(t, mock.Prompts[1], "First cases")
}

func TestEvaluate_NotImportant(t *testing.T) {
	mock := &MockLLM{Responses: []string{`{"bullets": "<bullet> Same numbers as before", "important": false}`}}
	ev, s := newEvaluator(t, mock)
	require.NoError(t, s.Concepts.Put(model.Concept{URI: "measles", Name: "Measles", Category: model.CategoryCondition}))

	prior := event("e0", "measles")
	got, important, err := ev.Evaluate(context.Background(), event("e1", "measles"), []model.Event{prior})
	require.NoError(t, err)
	assert.False(t, important)
	assert.Equal(t, "\n• Same numbers as before", got.Bullets)
	assert.Contains(t, mock.Prompts[0], "about Measles")
}

func TestEvaluate_HistoryFilteredByDominantConcept(t *testing.T) {
	mock := &MockLLM{Responses: []string{
		`{"concept": "cholera"}`,
		"<bullet> Cholera in the region",
	}}
	ev, _ := newEvaluator(t, mock)

	unrelated := event("e0", "measles")
	got, important, err := ev.Evaluate(context.Background(), event("e1", "measles", "cholera"), []model.Event{unrelated})
	require.NoError(t, err)
	assert.True(t, important)
	assert.Equal(t, "cholera", got.DominantConcept)
	require.Len(t, mock.Prompts, 2)
	assert.Contains(t, mock.Prompts[0], "cholera")
}

func TestEvaluate_DominantFallsBackToMostRelevant(t *testing.T) {
	mock := &MockLLM{Responses: []string{
		`{"concept": "not-a-candidate"}`,
		"<bullet> x",
	}}
	ev, s := newEvaluator(t, mock)
	require.NoError(t, s.Concepts.Put(model.Concept{URI: "a", RelevanceScore: 20, Category: model.CategoryOther}))
	require.NoError(t, s.Concepts.Put(model.Concept{URI: "b", RelevanceScore: 90, Category: model.CategoryCondition}))

	got, _, err := ev.Evaluate(context.Background(), event("e1", "a", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, "b", got.DominantConcept)
}

func TestEvaluate_SummaryFailureIsReturned(t *testing.T) {
	ev, _ := newEvaluator(t, &MockLLM{Err: llm.ErrNoResponse})
	_, important, err := ev.Evaluate(context.Background(), event("e1", "measles"), nil)
	assert.ErrorIs(t, err, llm.ErrNoResponse)
	assert.False(t, important)
}

func TestEvaluate_IgnoresItselfInHistory(t *testing.T) {
	mock := &MockLLM{Responses: []string{"<bullet> only summary"}}
	ev, _ := newEvaluator(t, mock)
	e := event("e1", "measles")

	_, important, err := ev.Evaluate(context.Background(), e, []model.Event{e})
	require.NoError(t, err)
	assert.True(t, important)
	assert.Len(t, mock.Prompts, 1)
}
