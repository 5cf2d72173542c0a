package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/agenthands/beacon/internal/llm"
)

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Prompts       []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

type MockWiki struct {
	mu    sync.Mutex
	Text  string
	Fail  map[string]bool
	Calls int
}

func (m *MockWiki) FetchIntro(ctx context.Context, uri string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Text == "" || m.Fail[uri] {
		return "", errors.New("no article")
	}
	return m.Text, nil
}
