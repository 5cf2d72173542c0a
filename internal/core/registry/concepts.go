package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync/atomic"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/common"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/store"
	"github.com/agenthands/beacon/internal/wiki"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidClassification is returned when the model answer does not fit
	// the schema. Nothing is persisted in that case.
	ErrInvalidClassification = errors.New("registry: invalid classification")

	ErrNotFound = errors.New("registry: not found")
)

const classifierRole = "You are an analyst curating a knowledge base about global child and adolescent health."

type classification struct {
	Category       model.ConceptCategory `json:"category"`
	RelevanceScore *float64              `json:"relevance_score"`
	Description    string                `json:"description"`
}

// Concepts resolves concept references to stored, classified concepts.
type Concepts struct {
	Store   *store.ConceptStore
	Events  *store.EventStore
	LLM     llm.LLMClient
	Wiki    wiki.Fetcher
	Prompts config.Prompts
}

func NewConcepts(s *store.ConceptStore, events *store.EventStore, llmClient llm.LLMClient, wikiClient wiki.Fetcher, prompts config.Prompts) *Concepts {
	return &Concepts{
		Store:   s,
		Events:  events,
		LLM:     llmClient,
		Wiki:    wikiClient,
		Prompts: prompts,
	}
}

// Resolve returns the stored concept for ref. A concept that is already
// classified is returned without any model call. Otherwise the incoming
// fields are merged into what is stored, the model classifies the result
// and it is persisted. On failure the input is returned unchanged.
func (r *Concepts) Resolve(ctx context.Context, ref model.ConceptRef) (model.Concept, error) {
	incoming := ref.Partial()
	if incoming.URI == "" {
		return incoming, fmt.Errorf("%w: concept without uri", ErrInvalidClassification)
	}

	c := incoming
	if existing, ok := r.Store.Get(ref.URI); ok {
		if existing.Classified() {
			return existing, nil
		}
		existing.Merge(incoming)
		c = existing
	}
	if c.Name == "" {
		c.Name = nameFromURI(c.URI)
	}

	if !c.Classified() {
		if err := r.classify(ctx, &c); err != nil {
			return incoming, err
		}
	}

	if err := r.Store.Put(c); err != nil {
		return incoming, fmt.Errorf("failed to save concept %s: %w", c.URI, err)
	}
	return c, nil
}

func (r *Concepts) classify(ctx context.Context, c *model.Concept) error {
	prompt := fmt.Sprintf(r.Prompts.ClassifyConcept, c.Name, c.Type, c.Description)

	response, err := r.LLM.Generate(ctx, prompt, llm.WithSystem(classifierRole), llm.WithJSON())
	if err != nil {
		return fmt.Errorf("failed to classify concept %s: %w", c.URI, err)
	}

	result, err := common.ParseJSON[classification](response)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClassification, err)
	}
	if !result.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidClassification, result.Category)
	}
	if result.RelevanceScore == nil || *result.RelevanceScore < 0 || *result.RelevanceScore > 100 {
		return fmt.Errorf("%w: relevance score out of range", ErrInvalidClassification)
	}

	c.Category = result.Category
	c.RelevanceScore = *result.RelevanceScore
	if len(result.Description) > len(c.Description) {
		c.Description = result.Description
	}
	return nil
}

// Approve sets the approval flag. Approving back-fills the concept's events
// from the event store.
func (r *Concepts) Approve(ctx context.Context, uri string, approved bool) (model.Concept, error) {
	c, ok := r.Store.Get(uri)
	if !ok {
		return model.Concept{}, fmt.Errorf("%w: concept %s", ErrNotFound, uri)
	}

	c.Approved = approved
	if approved {
		for _, e := range r.Events.WithConcept(uri) {
			c.AddEvent(e)
		}
	}
	if err := r.Store.Put(c); err != nil {
		return c, fmt.Errorf("failed to save concept %s: %w", uri, err)
	}
	slog.InfoContext(ctx, "concept approval changed", "uri", uri, "approved", approved, "events", len(c.Events))
	return c, nil
}

// Enrich stores the wiki introduction once.
func (r *Concepts) Enrich(ctx context.Context, uri string) (model.Concept, error) {
	c, ok := r.Store.Get(uri)
	if !ok {
		return model.Concept{}, fmt.Errorf("%w: concept %s", ErrNotFound, uri)
	}
	if c.WikiExcerpt != "" {
		return c, nil
	}

	text, err := r.Wiki.FetchIntro(ctx, uri)
	if err != nil {
		return c, fmt.Errorf("failed to fetch wiki intro for %s: %w", uri, err)
	}
	c.WikiExcerpt = text
	if err := r.Store.Put(c); err != nil {
		return c, fmt.Errorf("failed to save concept %s: %w", uri, err)
	}
	return c, nil
}

// EnrichAll enriches the given concepts with at most limit fetches in
// flight. Fetch failures are logged and skipped.
func (r *Concepts) EnrichAll(ctx context.Context, uris []string, limit int) (int, error) {
	if limit <= 0 {
		limit = 1
	}
	var enriched atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, uri := range uris {
		uri := uri
		g.Go(func() error {
			c, err := r.Enrich(gctx, uri)
			switch {
			case errors.Is(err, ErrNotFound):
				return err
			case err != nil:
				slog.WarnContext(gctx, "wiki enrichment skipped", "uri", uri, "error", err)
			case c.WikiExcerpt != "":
				enriched.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(enriched.Load()), err
	}
	return int(enriched.Load()), nil
}

// Register stores a bare uri discovered by label lookup, approved when asked.
func (r *Concepts) Register(ctx context.Context, uri, name string, approved bool) (model.Concept, error) {
	c, err := r.Resolve(ctx, model.ConceptRef{URI: uri, Concept: &model.Concept{URI: uri, Name: name}})
	if err != nil {
		return c, err
	}
	if approved && !c.Approved {
		return r.Approve(ctx, uri, true)
	}
	return c, nil
}

func nameFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return uri
	}
	name := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return strings.ReplaceAll(name, "_", " ")
}
