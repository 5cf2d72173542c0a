//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/graph"
	"github.com/agenthands/beacon/internal/search"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	_ = godotenv.Load("../../.env")
	cfg, err := config.Load("../../config/config.toml")
	if err != nil {
		t.Logf("Config not found, using defaults: %v", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	return cfg
}

func TestGraphMirror(t *testing.T) {
	cfg := loadConfig(t)
	if os.Getenv("MEMGRAPH_URI") == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}

	ctx := context.Background()
	d, err := graph.NewMemgraphDriver(ctx, cfg.Memgraph)
	require.NoError(t, err)
	defer d.Close(ctx)
	require.NoError(t, d.BuildIndices(ctx))

	id := uuid.NewString()
	eventURI := "test-event-" + id
	conceptURI := "test-concept-" + id
	m := graph.NewMirror(d)

	e := model.Event{URI: eventURI, EventDate: "2024-03-14", Title: map[string]string{model.LangEnglish: "Test event"}, Concepts: []string{conceptURI}}
	c := model.Concept{URI: conceptURI, Name: "Test concept", Category: model.CategoryCondition, RelevanceScore: 50}
	require.NoError(t, m.MirrorEvent(ctx, e, []model.Concept{c}, nil))
	require.NoError(t, m.MarkPosted(ctx, model.Post{ID: id, PostedAt: time.Now(), Score: 99, Event: e}))

	res, err := d.ExecuteQuery(ctx, `MATCH (:Event {uri: $uri})-[:MENTIONS]->(c:Concept) RETURN count(c) AS count`, map[string]interface{}{"uri": eventURI})
	require.NoError(t, err)
	require.NotEmpty(t, res.Records)
	count, _ := res.Records[0].Get("count")
	assert.Equal(t, int64(1), count)

	_, _ = d.ExecuteQuery(ctx, `MATCH (n) WHERE n.uri IN [$e, $c] DETACH DELETE n`, map[string]interface{}{"e": eventURI, "c": conceptURI})
}

func TestEventRegistrySearch(t *testing.T) {
	cfg := loadConfig(t)
	if cfg.News.APIKey == "" {
		t.Skip("Skipping integration test: NEWSREGISTRY_API_KEY not set")
	}

	ctx := context.Background()
	er := search.NewEventRegistry(cfg.News)

	uri, err := er.SuggestConcept(ctx, "Measles")
	require.NoError(t, err)
	assert.Contains(t, uri, "Measles")

	end := time.Now().UTC()
	events, err := er.Search(ctx, search.Query{ConceptURIs: []string{uri}, Start: end.AddDate(0, 0, -7), End: end})
	require.NoError(t, err)
	for _, e := range events {
		assert.NotEmpty(t, e.URI)
		assert.Equal(t, model.SourceNews, e.Source)
	}
}
