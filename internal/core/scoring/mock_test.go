package scoring

import (
	"context"

	"github.com/agenthands/beacon/internal/llm"
)

type MockLLM struct {
	Response string
	Err      error
	Calls    int
	Options  []llm.Options
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	m.Calls++
	m.Options = append(m.Options, llm.Apply(opts))
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
