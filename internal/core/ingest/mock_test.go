package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/search"
)

type MockSearcher struct {
	Events  []model.RawEvent
	Err     error
	MaxSize int
	Queries []search.Query
}

func (m *MockSearcher) Search(ctx context.Context, q search.Query) ([]model.RawEvent, error) {
	m.Queries = append(m.Queries, q)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.MaxSize > 0 && len(q.ConceptURIs) > m.MaxSize {
		return nil, search.ErrRequestTooLarge
	}
	var out []model.RawEvent
	for _, e := range m.Events {
		for _, ref := range e.Concepts {
			if contains(q.ConceptURIs, ref.URI) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

type MockResolver struct {
	Fail map[string]bool
}

func (m *MockResolver) Resolve(ctx context.Context, ref model.ConceptRef) (model.Concept, error) {
	if m.Fail[ref.URI] {
		return ref.Partial(), errors.New("classification failed")
	}
	c := ref.Partial()
	c.Category = model.CategoryCondition
	return c, nil
}

type MockEnsurer struct{}

func (m *MockEnsurer) Ensure(ctx context.Context, uri string) (model.Category, error) {
	return model.Category{URI: uri, ParentURI: model.ParentOf(uri)}, nil
}

type MockLLM struct {
	Response string
	Prompts  []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	return m.Response, nil
}

type MockMirror struct {
	Events []string
}

func (m *MockMirror) MirrorEvent(ctx context.Context, e model.Event, concepts []model.Concept, categories []model.Category) error {
	m.Events = append(m.Events, e.URI)
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func rawEvent(uri string, concepts ...string) model.RawEvent {
	e := model.RawEvent{
		URI:       uri,
		Title:     map[string]string{model.LangEnglish: "Title " + strings.ToUpper(uri)},
		Summary:   map[string]string{model.LangEnglish: "Summary of " + uri},
		EventDate: "2024-03-10",
		Source:    model.SourceNews,
	}
	for _, c := range concepts {
		e.Concepts = append(e.Concepts, model.ConceptRef{URI: c})
	}
	return e
}
