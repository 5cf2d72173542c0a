package survey

import (
	"context"
	"strings"
	"sync"

	"github.com/agenthands/beacon/internal/llm"
)

// MockLLM answers with the first response whose key occurs in the prompt.
type MockLLM struct {
	mu        sync.Mutex
	Responses map[string]string
	Err       error
	Prompts   []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	for key, resp := range m.Responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return "", nil
}
