// Package publish renders events as Slack messages and keeps the post log.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/store"
	"github.com/google/uuid"
)

// Gate decides lazily whether a candidate is worth posting and may return an
// updated event, e.g. with bullets filled in.
type Gate func(ctx context.Context, e model.Event) (model.Event, bool, error)

type Publisher struct {
	Poster   Poster
	Posts    *store.PostLog
	Concepts *store.ConceptStore
	Gate     Gate
	Now      func() time.Time
}

func NewPublisher(poster Poster, posts *store.PostLog, concepts *store.ConceptStore) *Publisher {
	return &Publisher{
		Poster:   poster,
		Posts:    posts,
		Concepts: concepts,
		Now:      time.Now,
	}
}

// Report summarizes one batch.
type Report struct {
	Posted  []model.Post `json:"posted"`
	Skipped []string     `json:"skipped,omitempty"`
	Failed  []string     `json:"failed,omitempty"`
}

// Publish posts the event unless its uri is already in the post log. A
// failed delivery returns an error wrapping ErrDelivery and logs nothing.
func (p *Publisher) Publish(ctx context.Context, se model.ScoredEvent) (bool, error) {
	_, ok, err := p.publish(ctx, se)
	return ok, err
}

func (p *Publisher) publish(ctx context.Context, se model.ScoredEvent) (model.Post, bool, error) {
	if p.Posts.Contains(se.Event.URI) {
		return model.Post{}, false, nil
	}
	msg := Render(se.Event, p.topConcepts(se.Event))
	if err := p.Poster.Post(ctx, msg); err != nil {
		return model.Post{}, false, fmt.Errorf("failed to post %s: %w", se.Event.URI, err)
	}

	post := model.Post{
		ID:       uuid.NewString(),
		PostedAt: p.now().UTC(),
		Score:    se.Score,
		Event:    se.Event,
	}
	if err := p.Posts.Append(post); err != nil {
		return post, true, fmt.Errorf("posted %s but failed to log it: %w", se.Event.URI, err)
	}
	slog.InfoContext(ctx, "published event", "event", se.Event.URI, "score", se.Score, "post", post.ID)
	return post, true, nil
}

// PublishBatch posts candidates in descending score order until one falls
// below threshold or maxPosts posts went out. Delivery failures and gate
// errors skip the candidate; a post log failure stops the batch.
func (p *Publisher) PublishBatch(ctx context.Context, events []model.ScoredEvent, threshold float64, maxPosts int) (Report, error) {
	candidates := append([]model.ScoredEvent(nil), events...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	var report Report
	for _, se := range candidates {
		if len(report.Posted) >= maxPosts || se.Score < threshold {
			break
		}
		if p.Posts.Contains(se.Event.URI) {
			continue
		}

		if p.Gate != nil {
			updated, important, err := p.Gate(ctx, se.Event)
			if err != nil {
				slog.WarnContext(ctx, "novelty gate failed", "event", se.Event.URI, "error", err)
				report.Failed = append(report.Failed, se.Event.URI)
				continue
			}
			if !important {
				slog.InfoContext(ctx, "skipping event without new information", "event", se.Event.URI)
				report.Skipped = append(report.Skipped, se.Event.URI)
				continue
			}
			se.Event = updated
		}

		post, ok, err := p.publish(ctx, se)
		switch {
		case errors.Is(err, ErrDelivery):
			slog.WarnContext(ctx, "delivery failed", "event", se.Event.URI, "error", err)
			report.Failed = append(report.Failed, se.Event.URI)
		case err != nil:
			return report, err
		case ok:
			report.Posted = append(report.Posted, post)
		}
	}
	return report, nil
}

// topConcepts returns concept names by descending relevance.
func (p *Publisher) topConcepts(e model.Event) []string {
	var concepts []model.Concept
	for _, uri := range e.Concepts {
		if c, ok := p.Concepts.Get(uri); ok && c.Name != "" {
			concepts = append(concepts, c)
		}
	}
	sort.SliceStable(concepts, func(i, j int) bool {
		return concepts[i].EffectiveRelevance() > concepts[j].EffectiveRelevance()
	})
	names := make([]string, 0, maxConcepts)
	for _, c := range concepts {
		if len(names) == maxConcepts {
			break
		}
		names = append(names, c.Name)
	}
	return names
}

func (p *Publisher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
