package novelty

import (
	"context"

	"github.com/agenthands/beacon/internal/llm"
)

type MockLLM struct {
	Responses []string
	Err       error
	Prompts   []string
	Options   []llm.Options
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	m.Options = append(m.Options, llm.Apply(opts))
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return resp, nil
}
