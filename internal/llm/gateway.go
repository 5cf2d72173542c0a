package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"
)

const maxRateLimitSleep = 5 * time.Second

// Provider is one named backend of a Gateway.
type Provider struct {
	Name   string
	Client LLMClient
}

// Gateway tries providers in order. A rate-limited provider is retried once
// after a short random sleep; any other failure or an empty answer moves on
// to the next provider.
type Gateway struct {
	Providers []Provider
	Timeout   time.Duration
	Sleep     func(context.Context, time.Duration) error
}

func NewGateway(timeout time.Duration, providers ...Provider) *Gateway {
	return &Gateway{
		Providers: providers,
		Timeout:   timeout,
		Sleep:     sleepContext,
	}
}

func (g *Gateway) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	var errs []error
	for _, p := range g.Providers {
		resp, err := g.call(ctx, p, prompt, opts)
		if errors.Is(err, ErrRateLimited) {
			wait := time.Duration(rand.Int63n(int64(maxRateLimitSleep)))
			slog.WarnContext(ctx, "llm rate limited, retrying", "provider", p.Name, "wait", wait)
			if serr := g.Sleep(ctx, wait); serr != nil {
				return "", serr
			}
			resp, err = g.call(ctx, p, prompt, opts)
		}
		if err == nil && strings.TrimSpace(resp) != "" {
			return resp, nil
		}
		if err == nil {
			err = errors.New("empty response")
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.WarnContext(ctx, "llm provider failed", "provider", p.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	if len(errs) == 0 {
		return "", ErrNoResponse
	}
	return "", fmt.Errorf("%w: %w", ErrNoResponse, errors.Join(errs...))
}

func (g *Gateway) call(ctx context.Context, p Provider, prompt string, opts []Option) (string, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	return p.Client.Generate(ctx, prompt, opts...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
