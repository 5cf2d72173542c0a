package server

import (
	"context"
	"strings"

	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/publish"
	"github.com/agenthands/beacon/internal/search"
)

// MockLLM answers by prompt marker.
type MockLLM struct {
	Replies map[string]string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	for marker, response := range m.Replies {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}
	return "", llm.ErrNoResponse
}

type MockSearcher struct {
	Events []model.RawEvent
}

func (m *MockSearcher) Search(ctx context.Context, q search.Query) ([]model.RawEvent, error) {
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
	return "", nil
}
