package llm

import (
	"context"
	"errors"
)

// ErrNoResponse is returned when no provider produced an answer.
var ErrNoResponse = errors.New("llm: no response")

// ErrRateLimited marks a provider answer of HTTP 429.
var ErrRateLimited = errors.New("llm: rate limited")

type LLMClient interface {
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)
}

type Options struct {
	// System is the role instruction sent ahead of the prompt.
	System string
	// JSON asks the provider for a single JSON object.
	JSON bool
}

type Option func(*Options)

func WithSystem(role string) Option {
	return func(o *Options) { o.System = role }
}

func WithJSON() Option {
	return func(o *Options) { o.JSON = true }
}

func Apply(opts []Option) Options {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
