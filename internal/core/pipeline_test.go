package core

import (
	"context"
	"testing"
	"time"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/ingest"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	pipeline *Pipeline
	store    *store.Store
	llm      *MockLLM
	news     *MockSearcher
	poster   *MockPoster
}

func daysAgo(n int) string {
	return model.FormatDay(time.Now().AddDate(0, 0, -n))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.Concepts.Put(model.Concept{
		URI:            "wiki/Measles",
		Name:           "Measles",
		Category:       model.CategoryCondition,
		RelevanceScore: 90,
		Approved:       true,
	}))

	article := func(body string) []model.Story {
		return []model.Story{{URI: "s", MedoidArticle: &model.Article{Body: body, URL: "https://news.example/a"}}}
	}
	news := &MockSearcher{Events: []model.RawEvent{
		{
			URI:       "fresh",
			Title:     map[string]string{model.LangEnglish: "Measles cases climb"},
			EventDate: daysAgo(1),
			Concepts:  []model.ConceptRef{{URI: "wiki/Measles"}},
			Stories:   article("Measles cases among children doubled."),
			Source:    model.SourceNews,
		},
		{
			URI:       "stale",
			Title:     map[string]string{model.LangEnglish: "Old measles report"},
			EventDate: daysAgo(40),
			Concepts:  []model.ConceptRef{{URI: "wiki/Measles"}},
			Stories:   article("An old report."),
			Source:    model.SourceNews,
		},
	}}
	mock := &MockLLM{Replies: []reply{
		{Contains: "estimate the relevance", Response: `{"relevance": 80}`},
		{Contains: "summarize the following news", Response: "<bullet> Cases doubled <bullet> Vaccination urged"},
		{Contains: "Classify the following concept", Response: `{"category": "organization", "relevance_score": 90, "description": "A UN agency."}`},
	}}
	poster := &MockPoster{}

	cfg := *config.Default()
	p := New(cfg, st, Deps{
		LLM:       mock,
		News:      news,
		Suggester: &MockSuggester{URIs: map[string]string{"UNICEF": "wiki/UNICEF"}},
		Poster:    poster,
		Wiki:      &MockWiki{},
	})
	return &fixture{pipeline: p, store: st, llm: mock, news: news, poster: poster}
}

func TestRun_SyncScoreAndPublish(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 2, report.New)
	assert.Equal(t, 2, report.Scored)
	require.Len(t, report.Publish.Posted, 1)
	assert.Equal(t, "fresh", report.Publish.Posted[0].Event.URI)
	assert.Equal(t, 119.0, report.Publish.Posted[0].Score)

	require.Len(t, f.poster.Messages, 1)
	assert.Equal(t, "• Cases doubled \n• Vaccination urged", f.poster.Messages[0].Blocks[1].Text.Text)

	stored, ok := f.store.Events.Get("fresh")
	require.True(t, ok)
	assert.Equal(t, "wiki/Measles", stored.DominantConcept)
	assert.NotEmpty(t, stored.Bullets)
	require.NotNil(t, stored.AIRelevanceScore)

	// a second run the same day neither searches nor reposts
	report, err = f.pipeline.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Len(t, f.news.Queries, 1)
	assert.Empty(t, report.Publish.Posted)
	assert.Len(t, f.poster.Messages, 1)
}

func TestScoreAndNovelty_UnknownEvent(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Score(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
	_, _, err = f.pipeline.EvaluateNovelty(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEvaluateNovelty_StoresBullets(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.Sync(context.Background(), nil, ingest.Options{})
	require.NoError(t, err)

	e, important, err := f.pipeline.EvaluateNovelty(context.Background(), "fresh")
	require.NoError(t, err)
	assert.True(t, important)

	stored, _ := f.store.Events.Get("fresh")
	assert.Equal(t, e.Bullets, stored.Bullets)
}

func TestNew_PublisherIsGated(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipeline.Sync(context.Background(), nil, ingest.Options{})
	require.NoError(t, err)
	require.NotNil(t, f.pipeline.Publisher.Gate)

	var fresh model.Event
	for _, e := range res.All {
		if e.URI == "fresh" {
			fresh = e
		}
	}
	report, err := f.pipeline.Publisher.PublishBatch(context.Background(), []model.ScoredEvent{{Event: fresh, Score: 100}}, 85, 1)
	require.NoError(t, err)
	require.Len(t, report.Posted, 1)
	assert.NotEmpty(t, report.Posted[0].Event.Bullets)

	stored, _ := f.store.Events.Get("fresh")
	assert.Equal(t, report.Posted[0].Event.Bullets, stored.Bullets)
}

func TestDiscover(t *testing.T) {
	f := newFixture(t)

	found, missing, err := f.pipeline.Discover(context.Background(), []string{"UNICEF", "Nonexistent Org"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "wiki/UNICEF", found[0].URI)
	assert.True(t, found[0].Approved)
	assert.Equal(t, model.CategoryOrganization, found[0].Category)
	assert.Equal(t, []string{"Nonexistent Org"}, missing)

	assert.ElementsMatch(t, []string{"wiki/Measles", "wiki/UNICEF"}, f.pipeline.ConceptSet())
}

func TestEnrich(t *testing.T) {
	f := newFixture(t)

	n, err := f.pipeline.Enrich(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	c, _ := f.store.Concepts.Get("wiki/Measles")
	assert.Equal(t, "Intro of wiki/Measles", c.WikiExcerpt)
}

func TestSyncTrials_NothingConfigured(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipeline.SyncTrials(context.Background(), nil, ingest.Options{})
	require.NoError(t, err)
	assert.Empty(t, res.All)
}
