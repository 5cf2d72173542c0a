package core

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/publish"
	"github.com/agenthands/beacon/internal/search"
)

type reply struct {
	Contains string
	Response string
}

// MockLLM answers with the first reply whose marker occurs in the prompt.
type MockLLM struct {
	mu      sync.Mutex
	Replies []reply
	Prompts []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	for _, r := range m.Replies {
		if strings.Contains(prompt, r.Contains) {
			return r.Response, nil
		}
	}
	return "", llm.ErrNoResponse
}

type MockSearcher struct {
	Events  []model.RawEvent
	Queries []search.Query
}

func (m *MockSearcher) Search(ctx context.Context, q search.Query) ([]model.RawEvent, error) {
	m.Queries = append(m.Queries, q)
	return m.Events, nil
}

type MockPoster struct {
	Messages []publish.Message
}

func (m *MockPoster) Post(ctx context.Context, msg publish.Message) error {
	m.Messages = append(m.Messages, msg)
	return nil
}

type MockWiki struct{}

func (m *MockWiki) FetchIntro(ctx context.Context, uri string) (string, error) {
	return "Intro of " + uri, nil
}

type MockSuggester struct {
	URIs map[string]string
}

func (m *MockSuggester) SuggestConcept(ctx context.Context, label string) (string, error) {
	if uri, ok := m.URIs[label]; ok {
		return uri, nil
	}
	return "", errors.New("no concept")
}
