package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/beacon/internal/core/model"
)

// Mirror writes merged events and their links as MERGE statements, so
// replaying an event is harmless.
type Mirror struct {
	Driver GraphDriver
}

func NewMirror(driver GraphDriver) *Mirror {
	return &Mirror{Driver: driver}
}

func (m *Mirror) MirrorEvent(ctx context.Context, e model.Event, concepts []model.Concept, categories []model.Category) error {
	params := map[string]interface{}{
		"uri":        e.URI,
		"title":      e.EnglishTitle(),
		"event_date": e.EventDate,
		"source":     e.Source,
		"url":        e.Link(),
	}
	if _, err := m.Driver.ExecuteQuery(ctx, SaveEventQuery, params); err != nil {
		return fmt.Errorf("failed to save event %s: %w", e.URI, err)
	}

	for _, c := range concepts {
		if err := m.SaveConcept(ctx, c); err != nil {
			return err
		}
		edge := map[string]interface{}{"event_uri": e.URI, "concept_uri": c.URI}
		if _, err := m.Driver.ExecuteQuery(ctx, SaveMentionsEdgeQuery, edge); err != nil {
			return fmt.Errorf("failed to link %s to concept %s: %w", e.URI, c.URI, err)
		}
	}

	for _, c := range categories {
		if err := m.SaveCategory(ctx, c); err != nil {
			return err
		}
		edge := map[string]interface{}{"event_uri": e.URI, "category_uri": c.URI}
		if _, err := m.Driver.ExecuteQuery(ctx, SaveInCategoryEdgeQuery, edge); err != nil {
			return fmt.Errorf("failed to link %s to category %s: %w", e.URI, c.URI, err)
		}
	}
	return nil
}

func (m *Mirror) SaveConcept(ctx context.Context, c model.Concept) error {
	params := map[string]interface{}{
		"uri":             c.URI,
		"name":            c.Name,
		"category":        string(c.Category),
		"relevance_score": c.RelevanceScore,
		"approved":        c.Approved,
	}
	if _, err := m.Driver.ExecuteQuery(ctx, SaveConceptQuery, params); err != nil {
		return fmt.Errorf("failed to save concept %s: %w", c.URI, err)
	}
	return nil
}

// SaveCategory stores the category and, if it has one, the PARENT edge to
// its parent.
func (m *Mirror) SaveCategory(ctx context.Context, c model.Category) error {
	params := map[string]interface{}{
		"uri":         c.URI,
		"approved":    c.Approved,
		"description": c.Description,
	}
	if _, err := m.Driver.ExecuteQuery(ctx, SaveCategoryQuery, params); err != nil {
		return fmt.Errorf("failed to save category %s: %w", c.URI, err)
	}
	if c.ParentURI == "" {
		return nil
	}
	edge := map[string]interface{}{"uri": c.URI, "parent_uri": c.ParentURI}
	if _, err := m.Driver.ExecuteQuery(ctx, SaveParentEdgeQuery, edge); err != nil {
		return fmt.Errorf("failed to link category %s to %s: %w", c.URI, c.ParentURI, err)
	}
	return nil
}

// MarkPosted records a publication on the event node.
func (m *Mirror) MarkPosted(ctx context.Context, p model.Post) error {
	params := map[string]interface{}{
		"uri":       p.Event.URI,
		"posted_at": p.PostedAt.Format(time.RFC3339),
		"score":     p.Score,
	}
	if _, err := m.Driver.ExecuteQuery(ctx, MarkPostedQuery, params); err != nil {
		return fmt.Errorf("failed to mark %s posted: %w", p.Event.URI, err)
	}
	return nil
}
