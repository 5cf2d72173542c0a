// Package scoring ranks events by concept relevance, a model rating of the
// article and recency.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/common"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/store"
)

// FreshDays is the age at which the time component reaches zero.
const FreshDays = 30

type Score struct {
	Composite float64  `json:"composite"`
	Time      float64  `json:"time"`
	Concept   float64  `json:"concept"`
	AI        *float64 `json:"ai,omitempty"`
}

type Scorer struct {
	LLM      llm.LLMClient
	Concepts *store.ConceptStore
	// Events receives the cached component scores. Optional.
	Events  *store.EventStore
	Prompts config.Prompts
	Now     func() time.Time
}

func NewScorer(llmClient llm.LLMClient, concepts *store.ConceptStore, events *store.EventStore, prompts config.Prompts) *Scorer {
	return &Scorer{
		LLM:      llmClient,
		Concepts: concepts,
		Events:   events,
		Prompts:  prompts,
		Now:      time.Now,
	}
}

type relevanceResult struct {
	Relevance *float64 `json:"relevance"`
}

// Score computes the composite score and caches the concept and model
// components on e.
func (s *Scorer) Score(ctx context.Context, e *model.Event) (Score, error) {
	date, err := e.Date()
	if err != nil {
		return Score{}, fmt.Errorf("event %s has invalid date %q: %w", e.URI, e.EventDate, err)
	}

	changed := false
	if e.ConceptRelevanceScore == nil {
		v := s.conceptScore(e)
		e.ConceptRelevanceScore = &v
		changed = true
	}
	if e.AIRelevanceScore == nil {
		if v := s.rate(ctx, e); v != nil {
			e.AIRelevanceScore = v
			changed = true
		}
	}

	sc := Score{
		Time:    FreshDays - s.daysSince(date),
		Concept: *e.ConceptRelevanceScore,
		AI:      e.AIRelevanceScore,
	}
	switch {
	case sc.AI == nil:
		sc.Composite = sc.Time + sc.Concept
	case sc.Concept == 0:
		sc.Composite = sc.Time + *sc.AI
	default:
		sc.Composite = sc.Time + (sc.Concept+*sc.AI)/2
	}

	if changed && s.Events != nil {
		if err := s.save(*e); err != nil {
			return sc, err
		}
	}
	return sc, nil
}

// conceptScore averages the effective relevance of the event's concepts,
// ignoring unknown concepts and non-positive values.
func (s *Scorer) conceptScore(e *model.Event) float64 {
	var sum float64
	var n int
	for _, uri := range e.Concepts {
		c, ok := s.Concepts.Get(uri)
		if !ok {
			continue
		}
		v := c.EffectiveRelevance()
		if v <= 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// rate asks the model for a 0-100 rating of the representative article.
// Any failure yields nil.
func (s *Scorer) rate(ctx context.Context, e *model.Event) *float64 {
	body := e.ArticleBody()
	if body == "" {
		return nil
	}
	prompt := fmt.Sprintf(s.Prompts.RateRelevance, e.EnglishTitle(), body)
	resp, err := s.LLM.Generate(ctx, prompt, llm.WithJSON())
	if err != nil {
		slog.WarnContext(ctx, "relevance rating failed", "event", e.URI, "error", err)
		return nil
	}
	result, err := common.ParseJSON[relevanceResult](resp)
	if err != nil {
		slog.WarnContext(ctx, "unparseable relevance rating", "event", e.URI, "error", err)
		return nil
	}
	if result.Relevance == nil || *result.Relevance < 0 || *result.Relevance > 100 {
		slog.WarnContext(ctx, "relevance rating out of range", "event", e.URI)
		return nil
	}
	return result.Relevance
}

func (s *Scorer) daysSince(date time.Time) float64 {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return float64(int(model.Day(now()).Sub(model.Day(date)).Hours() / 24))
}

func (s *Scorer) save(e model.Event) error {
	stored, ok := s.Events.Get(e.URI)
	if ok {
		stored.MergeFrom(e)
		e = stored
	}
	if err := s.Events.Put(e); err != nil {
		return fmt.Errorf("failed to cache scores for %s: %w", e.URI, err)
	}
	return nil
}
