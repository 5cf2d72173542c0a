package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/store"
)

// Categories keeps the category tree. Every stored category's parent is
// stored as well.
type Categories struct {
	Store    *store.CategoryStore
	Events   *store.EventStore
	LLM      llm.LLMClient
	Prompts  config.Prompts
	approved map[string]bool
}

func NewCategories(s *store.CategoryStore, events *store.EventStore, llmClient llm.LLMClient, prompts config.Prompts, approved []string) *Categories {
	set := make(map[string]bool, len(approved))
	for _, uri := range approved {
		set[uri] = true
	}
	return &Categories{
		Store:    s,
		Events:   events,
		LLM:      llmClient,
		Prompts:  prompts,
		approved: set,
	}
}

// Ensure creates the category and any missing ancestors. Categories on the
// configured approval list start out approved.
func (r *Categories) Ensure(ctx context.Context, uri string) (model.Category, error) {
	if c, ok := r.Store.Get(uri); ok {
		return c, nil
	}

	parent := model.ParentOf(uri)
	if parent != "" {
		if _, err := r.Ensure(ctx, parent); err != nil {
			return model.Category{}, err
		}
	}

	c := model.Category{URI: uri, ParentURI: parent, Events: []string{}}
	if r.approved[uri] {
		r.approve(ctx, &c)
	}
	if err := r.Store.Put(c); err != nil {
		return c, fmt.Errorf("failed to save category %s: %w", uri, err)
	}
	slog.DebugContext(ctx, "added category", "uri", uri, "approved", c.Approved)
	return c, nil
}

// Approve toggles the flag. Approving back-fills events and writes a
// description when there is none.
func (r *Categories) Approve(ctx context.Context, uri string, approved bool) (model.Category, error) {
	c, ok := r.Store.Get(uri)
	if !ok {
		return model.Category{}, fmt.Errorf("%w: category %s", ErrNotFound, uri)
	}
	if approved {
		r.approve(ctx, &c)
	} else {
		c.Approved = false
	}
	if err := r.Store.Put(c); err != nil {
		return c, fmt.Errorf("failed to save category %s: %w", uri, err)
	}
	return c, nil
}

func (r *Categories) approve(ctx context.Context, c *model.Category) {
	c.Approved = true
	for _, e := range r.Events.WithCategory(c.URI) {
		c.AddEvent(e)
	}
	if c.Description != "" {
		return
	}
	description, err := r.LLM.Generate(ctx, fmt.Sprintf(r.Prompts.DescribeCategory, c.URI))
	if err != nil {
		slog.WarnContext(ctx, "could not describe category", "uri", c.URI, "error", err)
		return
	}
	c.Description = strings.TrimSpace(description)
}
