// Package ingest runs incremental searches for a concept set and merges the
// results into the event, concept and category registries.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/search"
	"github.com/agenthands/beacon/internal/store"
)

// DefaultWindowDays is how far back a never-searched concept starts.
const DefaultWindowDays = 31

type ConceptResolver interface {
	Resolve(ctx context.Context, ref model.ConceptRef) (model.Concept, error)
}

type CategoryEnsurer interface {
	Ensure(ctx context.Context, uri string) (model.Category, error)
}

// Mirror receives every merged event. Failures are logged only.
type Mirror interface {
	MirrorEvent(ctx context.Context, e model.Event, concepts []model.Concept, categories []model.Category) error
}

type Options struct {
	// Categories narrows the search to events in any of these categories.
	Categories []string
	// BackfillDays extends coverage back to today minus this many days.
	BackfillDays int
	// Force runs the forward query even if it already ran today.
	Force bool
}

type Result struct {
	All []model.Event
	New []model.Event
}

type Engine struct {
	Searcher   search.Searcher
	Cursors    *store.CursorStore
	Events     *store.EventStore
	Concepts   *store.ConceptStore
	Categories *store.CategoryStore
	Resolver   ConceptResolver
	Ensurer    CategoryEnsurer
	LLM        llm.LLMClient
	Prompts    config.Prompts
	MaxSplits  int
	Mirror     Mirror

	// Related decides which stored events belong to a concept set. It
	// defaults to events that reference one of the concepts.
	Related func(e model.Event, concepts []string) bool
	Now     func() time.Time
}

type window struct {
	start, end time.Time
}

// Sync fetches what is missing for the concept set and returns every known
// related event plus the ones stored for the first time. Cursors only move
// after every query and the merge succeeded.
func (e *Engine) Sync(ctx context.Context, concepts []string, opts Options) (Result, error) {
	if len(concepts) == 0 {
		return Result{}, errors.New("ingest: empty concept set")
	}

	today := model.Day(e.now())
	lastSearch, dataSince := e.bounds(concepts, today)

	var windows []window
	if opts.BackfillDays > 0 {
		start := today.AddDate(0, 0, -opts.BackfillDays)
		if start.Before(dataSince) {
			windows = append(windows, window{start: start, end: dataSince})
		}
	}
	if lastSearch.Before(today) || opts.Force {
		windows = append(windows, window{start: lastSearch, end: today})
	}
	if len(windows) == 0 {
		slog.InfoContext(ctx, "no new events since last search date", "concepts", len(concepts), "last_search", model.FormatDay(lastSearch))
		return Result{All: e.known(concepts)}, nil
	}

	var raw []model.RawEvent
	for _, w := range windows {
		q := search.Query{CategoryURIs: opts.Categories, Start: w.start, End: w.end}
		found, err := e.fetch(ctx, concepts, q, 0)
		if err != nil {
			return Result{}, fmt.Errorf("search %s..%s: %w", model.FormatDay(w.start), model.FormatDay(w.end), err)
		}
		slog.InfoContext(ctx, "search window fetched", "start", model.FormatDay(w.start), "end", model.FormatDay(w.end), "events", len(found))
		raw = append(raw, found...)
	}

	fresh, err := e.merge(ctx, raw)
	if err != nil {
		return Result{}, err
	}

	if err := e.advance(concepts, today, windows); err != nil {
		return Result{}, err
	}

	return Result{All: e.known(concepts), New: fresh}, nil
}

// bounds returns the minimum last-search date and maximum data-since date
// over the concept set.
func (e *Engine) bounds(concepts []string, today time.Time) (time.Time, time.Time) {
	fallback := today.AddDate(0, 0, -DefaultWindowDays)
	var lastSearch, dataSince time.Time
	for i, uri := range concepts {
		ls, ds := fallback, fallback
		if c, ok := e.Cursors.Get(uri); ok {
			if t, err := c.LastSearch(); err == nil {
				ls = t
			}
			if t, err := c.Since(); err == nil {
				ds = t
			}
		}
		if i == 0 || ls.Before(lastSearch) {
			lastSearch = ls
		}
		if i == 0 || ds.After(dataSince) {
			dataSince = ds
		}
	}
	return lastSearch, dataSince
}

// fetch runs the query, halving the concept set on ErrRequestTooLarge up to
// MaxSplits levels deep.
func (e *Engine) fetch(ctx context.Context, concepts []string, q search.Query, depth int) ([]model.RawEvent, error) {
	q.ConceptURIs = concepts
	events, err := e.Searcher.Search(ctx, q)
	if err == nil {
		return events, nil
	}
	if !errors.Is(err, search.ErrRequestTooLarge) || len(concepts) < 2 || depth >= e.MaxSplits {
		return nil, err
	}

	mid := len(concepts) / 2
	slog.InfoContext(ctx, "request too large, splitting concept set", "size", len(concepts), "depth", depth+1)
	left, err := e.fetch(ctx, concepts[:mid], q, depth+1)
	if err != nil {
		return nil, err
	}
	right, err := e.fetch(ctx, concepts[mid:], q, depth+1)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// merge stores each raw event once and returns those that were not stored
// before.
func (e *Engine) merge(ctx context.Context, raw []model.RawEvent) ([]model.Event, error) {
	seen := make(map[string]bool, len(raw))
	conceptLinks := make(map[string][]string)
	categoryLinks := make(map[string][]string)
	var merged []model.Event
	var freshIdx []int

	type mirrored struct {
		concepts   []model.Concept
		categories []model.Category
	}
	var toMirror []mirrored

	for _, r := range raw {
		if r.URI == "" || seen[r.URI] {
			continue
		}
		seen[r.URI] = true

		ev := r.Event()
		var concepts []model.Concept
		for _, ref := range r.Concepts {
			c, err := e.Resolver.Resolve(ctx, ref)
			if err != nil {
				slog.WarnContext(ctx, "skipping unresolved concept", "event", r.URI, "concept", ref.URI, "error", err)
				continue
			}
			if !ev.HasConcept(c.URI) {
				ev.Concepts = append(ev.Concepts, c.URI)
				concepts = append(concepts, c)
			}
			conceptLinks[c.URI] = append(conceptLinks[c.URI], r.URI)
		}
		var categories []model.Category
		for _, ref := range r.Categories {
			c, err := e.Ensurer.Ensure(ctx, ref.URI)
			if err != nil {
				slog.WarnContext(ctx, "skipping category", "event", r.URI, "category", ref.URI, "error", err)
				continue
			}
			if !ev.HasCategory(c.URI) {
				ev.Categories = append(ev.Categories, c.URI)
				categories = append(categories, c)
			}
			categoryLinks[c.URI] = append(categoryLinks[c.URI], r.URI)
		}

		if existing, ok := e.Events.Get(r.URI); ok {
			existing.MergeFrom(ev)
			ev = existing
		} else {
			freshIdx = append(freshIdx, len(merged))
		}
		e.translate(ctx, ev.Title)
		e.translate(ctx, ev.Summary)

		merged = append(merged, ev)
		toMirror = append(toMirror, mirrored{concepts: concepts, categories: categories})
	}

	if err := e.Events.PutAll(merged); err != nil {
		return nil, fmt.Errorf("failed to save events: %w", err)
	}
	if err := e.Concepts.LinkEvents(conceptLinks); err != nil {
		return nil, fmt.Errorf("failed to link concept events: %w", err)
	}
	if err := e.Categories.LinkEvents(categoryLinks); err != nil {
		return nil, fmt.Errorf("failed to link category events: %w", err)
	}

	if e.Mirror != nil {
		for i, m := range toMirror {
			if err := e.Mirror.MirrorEvent(ctx, merged[i], m.concepts, m.categories); err != nil {
				slog.WarnContext(ctx, "graph mirror failed", "event", merged[i].URI, "error", err)
			}
		}
	}

	fresh := make([]model.Event, 0, len(freshIdx))
	for _, i := range freshIdx {
		fresh = append(fresh, merged[i])
	}
	slog.InfoContext(ctx, "merged events", "fetched", len(raw), "merged", len(merged), "new", len(fresh))
	return fresh, nil
}

// translate fills the English entry from the first available language.
func (e *Engine) translate(ctx context.Context, text map[string]string) {
	if text == nil || text[model.LangEnglish] != "" {
		return
	}
	lang, ok := model.FirstLanguage(text)
	if !ok {
		return
	}
	translated, err := e.LLM.Generate(ctx, fmt.Sprintf(e.Prompts.Translate, lang, text[lang]))
	if err != nil {
		slog.WarnContext(ctx, "translation failed", "lang", lang, "error", err)
		return
	}
	text[model.LangEnglish] = strings.TrimSpace(translated)
}

// advance moves every cursor forward to today and back to the earliest
// window start that was searched.
func (e *Engine) advance(concepts []string, today time.Time, windows []window) error {
	earliest := windows[0].start
	for _, w := range windows[1:] {
		if w.start.Before(earliest) {
			earliest = w.start
		}
	}

	cursors := make(map[string]model.Cursor, len(concepts))
	for _, uri := range concepts {
		ls, ds := today, earliest
		if c, ok := e.Cursors.Get(uri); ok {
			if t, err := c.LastSearch(); err == nil && t.After(ls) {
				ls = t
			}
			if t, err := c.Since(); err == nil && t.Before(ds) {
				ds = t
			}
		}
		cursors[uri] = model.Cursor{LastSearchDate: model.FormatDay(ls), DataSince: model.FormatDay(ds)}
	}
	if err := e.Cursors.PutAll(cursors); err != nil {
		return fmt.Errorf("failed to save cursors: %w", err)
	}
	return nil
}

func (e *Engine) known(concepts []string) []model.Event {
	related := e.Related
	if related == nil {
		related = ReferencesAny
	}
	return e.Events.Find(func(ev model.Event) bool { return related(ev, concepts) })
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ReferencesAny reports whether the event references one of the concepts.
func ReferencesAny(ev model.Event, concepts []string) bool {
	for _, c := range concepts {
		if ev.HasConcept(c) {
			return true
		}
	}
	return false
}
