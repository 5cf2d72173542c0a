package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/ingest"
	"github.com/agenthands/beacon/internal/core/novelty"
	"github.com/agenthands/beacon/internal/core/registry"
	"github.com/agenthands/beacon/internal/core/scoring"
	"github.com/agenthands/beacon/internal/core/survey"
	"github.com/agenthands/beacon/internal/graph"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/publish"
	"github.com/agenthands/beacon/internal/search"
	"github.com/agenthands/beacon/internal/store"
	"github.com/agenthands/beacon/internal/wiki"
)

// Deps are the external collaborators of a Pipeline.
type Deps struct {
	LLM       llm.LLMClient
	News      search.Searcher
	Trials    search.Searcher
	Suggester ConceptSuggester
	Poster    publish.Poster
	Wiki      wiki.Fetcher
	// Graph is optional.
	Graph graph.GraphDriver
}

// Open loads the stores and connects every collaborator described by cfg.
func Open(ctx context.Context, cfg config.Config) (*Pipeline, error) {
	st, err := store.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	news := search.NewEventRegistry(cfg.News)
	deps := Deps{
		LLM:       llmClient,
		News:      news,
		Trials:    search.NewTrials(cfg.Trials),
		Suggester: news,
		Poster:    publish.NewSlackWebhook(cfg.Slack),
		Wiki:      wiki.NewClient(cfg.Wiki),
	}

	if cfg.Memgraph.URI != "" {
		d, err := graph.NewMemgraphDriver(ctx, cfg.Memgraph)
		if err != nil {
			// the mirror is optional
			slog.WarnContext(ctx, "graph mirror disabled", "error", err)
		} else {
			if err := d.BuildIndices(ctx); err != nil {
				slog.WarnContext(ctx, "failed to build graph indices", "error", err)
			}
			deps.Graph = d
		}
	}

	return New(cfg, st, deps), nil
}

// New wires a Pipeline from already opened stores and collaborators.
func New(cfg config.Config, st *store.Store, deps Deps) *Pipeline {
	concepts := registry.NewConcepts(st.Concepts, st.Events, deps.LLM, deps.Wiki, cfg.Prompts)
	categories := registry.NewCategories(st.Categories, st.Events, deps.LLM, cfg.Prompts, cfg.Sync.ApprovedCategories)

	p := &Pipeline{
		Config:     cfg,
		Store:      st,
		Concepts:   concepts,
		Categories: categories,
		Scorer:     scoring.NewScorer(deps.LLM, st.Concepts, st.Events, cfg.Prompts),
		Novelty:    novelty.NewEvaluator(deps.LLM, st.Concepts, cfg.Prompts),
		Publisher:  publish.NewPublisher(deps.Poster, st.Posts, st.Concepts),
		Surveyor:   survey.NewSurveyor(deps.LLM, st.Concepts, st.Profiles, cfg.Prompts, cfg.Concurrency.Survey),
		Suggester:  deps.Suggester,
	}
	p.Publisher.Gate = p.evaluate

	var mirror ingest.Mirror
	if deps.Graph != nil {
		p.Mirror = graph.NewMirror(deps.Graph)
		p.closer = deps.Graph.Close
		mirror = p.Mirror
	}

	engine := func(searcher search.Searcher, cursors *store.CursorStore) *ingest.Engine {
		return &ingest.Engine{
			Searcher:   searcher,
			Cursors:    cursors,
			Events:     st.Events,
			Concepts:   st.Concepts,
			Categories: st.Categories,
			Resolver:   concepts,
			Ensurer:    categories,
			LLM:        deps.LLM,
			Prompts:    cfg.Prompts,
			MaxSplits:  cfg.Sync.MaxSplits,
			Mirror:     mirror,
		}
	}
	p.News = engine(deps.News, st.Searches)
	if deps.Trials != nil {
		p.Trials = engine(deps.Trials, st.TrialSearches)
		p.Trials.Related = search.TrialMatches
	}
	return p
}
