// Package core ties the sync, scoring, novelty and publishing stages into
// the programmatic entry points used by the CLI and the HTTP server.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/ingest"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/core/novelty"
	"github.com/agenthands/beacon/internal/core/registry"
	"github.com/agenthands/beacon/internal/core/scoring"
	"github.com/agenthands/beacon/internal/core/survey"
	"github.com/agenthands/beacon/internal/graph"
	"github.com/agenthands/beacon/internal/publish"
	"github.com/agenthands/beacon/internal/store"
)

var ErrEventNotFound = errors.New("core: event not found")

type Pipeline struct {
	Config     config.Config
	Store      *store.Store
	News       *ingest.Engine
	Trials     *ingest.Engine
	Concepts   *registry.Concepts
	Categories *registry.Categories
	Scorer     *scoring.Scorer
	Novelty    *novelty.Evaluator
	Publisher  *publish.Publisher
	Surveyor   *survey.Surveyor
	Suggester  ConceptSuggester
	// Mirror is nil unless a graph database is configured.
	Mirror *graph.Mirror
	closer func(ctx context.Context) error
}

// ConceptSuggester resolves a free-text label to a concept uri.
type ConceptSuggester interface {
	SuggestConcept(ctx context.Context, label string) (string, error)
}

type RunOptions struct {
	Concepts     []string `json:"concepts"`
	BackfillDays int      `json:"backfill_days"`
	Force        bool     `json:"force"`
	// SkipTrials leaves clinical trials out of the run.
	SkipTrials bool `json:"skip_trials"`
}

type RunReport struct {
	Synced  int            `json:"synced"`
	New     int            `json:"new"`
	Scored  int            `json:"scored"`
	Publish publish.Report `json:"publish"`
}

// ConceptSet returns the configured concept set, falling back to every
// approved concept.
func (p *Pipeline) ConceptSet() []string {
	if len(p.Config.News.Concepts) > 0 {
		return p.Config.News.Concepts
	}
	var uris []string
	for _, c := range p.Store.Concepts.Approved() {
		uris = append(uris, c.URI)
	}
	return uris
}

// Sync brings the news events for concepts up to date. An empty set means
// ConceptSet.
func (p *Pipeline) Sync(ctx context.Context, concepts []string, opts ingest.Options) (ingest.Result, error) {
	if len(concepts) == 0 {
		concepts = p.ConceptSet()
	}
	return p.News.Sync(ctx, concepts, opts)
}

// SyncTrials brings clinical trials for the conditions up to date. An empty
// set means the configured conditions.
func (p *Pipeline) SyncTrials(ctx context.Context, conditions []string, opts ingest.Options) (ingest.Result, error) {
	if p.Trials == nil {
		return ingest.Result{}, nil
	}
	if len(conditions) == 0 {
		conditions = p.Config.Trials.Conditions
	}
	if len(conditions) == 0 {
		return ingest.Result{}, nil
	}
	opts.Categories = nil
	return p.Trials.Sync(ctx, conditions, opts)
}

// Score scores a stored event and caches its components.
func (p *Pipeline) Score(ctx context.Context, uri string) (scoring.Score, error) {
	e, ok := p.Store.Events.Get(uri)
	if !ok {
		return scoring.Score{}, fmt.Errorf("%w: %s", ErrEventNotFound, uri)
	}
	return p.Scorer.Score(ctx, &e)
}

// ScoreAll scores events that were never posted. Events that cannot be
// scored are logged and left out.
func (p *Pipeline) ScoreAll(ctx context.Context, events []model.Event) []model.ScoredEvent {
	var scored []model.ScoredEvent
	for _, e := range events {
		if p.Store.Posts.Contains(e.URI) {
			continue
		}
		sc, err := p.Scorer.Score(ctx, &e)
		if err != nil {
			slog.WarnContext(ctx, "could not score event", "event", e.URI, "error", err)
			continue
		}
		scored = append(scored, model.ScoredEvent{Event: e, Score: sc.Composite})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

// EvaluateNovelty runs the novelty check for a stored event against the
// published history and stores the resulting bullets.
func (p *Pipeline) EvaluateNovelty(ctx context.Context, uri string) (model.Event, bool, error) {
	e, ok := p.Store.Events.Get(uri)
	if !ok {
		return model.Event{}, false, fmt.Errorf("%w: %s", ErrEventNotFound, uri)
	}
	return p.evaluate(ctx, e)
}

func (p *Pipeline) evaluate(ctx context.Context, e model.Event) (model.Event, bool, error) {
	updated, important, err := p.Novelty.Evaluate(ctx, e, p.Store.Posts.Events())
	if err != nil {
		return e, false, err
	}
	stored, ok := p.Store.Events.Get(updated.URI)
	if ok {
		stored.MergeFrom(updated)
	} else {
		stored = updated
	}
	if err := p.Store.Events.Put(stored); err != nil {
		return updated, important, fmt.Errorf("failed to save bullets for %s: %w", updated.URI, err)
	}
	return updated, important, nil
}

// PublishBatch posts the best candidates. The publisher gates each on novelty.
func (p *Pipeline) PublishBatch(ctx context.Context, events []model.ScoredEvent, threshold float64, maxPosts int) (publish.Report, error) {
	report, err := p.Publisher.PublishBatch(ctx, events, threshold, maxPosts)
	if p.Mirror != nil {
		for _, post := range report.Posted {
			if merr := p.Mirror.MarkPosted(ctx, post); merr != nil {
				slog.WarnContext(ctx, "graph mirror failed", "event", post.Event.URI, "error", merr)
			}
		}
	}
	return report, err
}

// Publish scores every stored event that was never posted and publishes the
// best of them. A zero threshold or maxPosts means the configured value.
func (p *Pipeline) Publish(ctx context.Context, threshold float64, maxPosts int) (publish.Report, error) {
	if threshold == 0 {
		threshold = p.Config.Publish.Threshold
	}
	if maxPosts == 0 {
		maxPosts = p.Config.Publish.MaxPosts
	}
	return p.PublishBatch(ctx, p.ScoreAll(ctx, p.Store.Events.All()), threshold, maxPosts)
}

// Run syncs news and trials, scores everything not yet posted and publishes
// with the configured threshold and post limit.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (RunReport, error) {
	var report RunReport
	syncOpts := ingest.Options{BackfillDays: opts.BackfillDays, Force: opts.Force}
	if syncOpts.BackfillDays == 0 {
		syncOpts.BackfillDays = p.Config.Sync.BackfillDays
	}

	res, err := p.Sync(ctx, opts.Concepts, syncOpts)
	if err != nil {
		return report, fmt.Errorf("news sync failed: %w", err)
	}
	candidates := res.All
	report.New = len(res.New)

	if !opts.SkipTrials {
		trials, err := p.SyncTrials(ctx, nil, syncOpts)
		if err != nil {
			// news can still go out
			slog.WarnContext(ctx, "trial sync failed", "error", err)
		} else {
			candidates = append(candidates, trials.All...)
			report.New += len(trials.New)
		}
	}
	report.Synced = len(candidates)

	scored := p.ScoreAll(ctx, candidates)
	report.Scored = len(scored)

	report.Publish, err = p.PublishBatch(ctx, scored, p.Config.Publish.Threshold, p.Config.Publish.MaxPosts)
	if err != nil {
		return report, err
	}
	slog.InfoContext(ctx, "run finished", "synced", report.Synced, "new", report.New, "scored", report.Scored, "posted", len(report.Publish.Posted))
	return report, nil
}

// Discover resolves labels to concept uris and registers them approved.
// Labels that cannot be resolved are returned separately.
func (p *Pipeline) Discover(ctx context.Context, labels []string) ([]model.Concept, []string, error) {
	if p.Suggester == nil {
		return nil, labels, errors.New("core: no concept suggester configured")
	}
	var found []model.Concept
	var missing []string
	for _, label := range labels {
		uri, err := p.Suggester.SuggestConcept(ctx, label)
		if err != nil {
			slog.WarnContext(ctx, "concept not found", "label", label, "error", err)
			missing = append(missing, label)
			continue
		}
		c, err := p.Concepts.Register(ctx, uri, label, true)
		if err != nil {
			slog.WarnContext(ctx, "concept not registered", "label", label, "uri", uri, "error", err)
			missing = append(missing, label)
			continue
		}
		found = append(found, c)
	}
	return found, missing, nil
}

// Enrich fetches wiki introductions for every approved concept without one.
func (p *Pipeline) Enrich(ctx context.Context) (int, error) {
	var uris []string
	for _, c := range p.Store.Concepts.Approved() {
		if c.WikiExcerpt == "" {
			uris = append(uris, c.URI)
		}
	}
	return p.Concepts.EnrichAll(ctx, uris, p.Config.Concurrency.Survey)
}

func (p *Pipeline) Close(ctx context.Context) error {
	if p.closer == nil {
		return nil
	}
	return p.closer(ctx)
}
