package llm

import (
	"context"
)

type MockLLM struct {
	Responses []string
	Errs      []error
	Calls     int
	Options   []Options
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	i := m.Calls
	m.Calls++
	m.Options = append(m.Options, Apply(opts))
	var err error
	if i < len(m.Errs) {
		err = m.Errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(m.Responses) {
		return m.Responses[i], nil
	}
	return "", nil
}
