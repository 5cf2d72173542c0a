package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const geminiProxyAttempts = 3

// GeminiClient calls Gemini directly or, when a proxy pool is configured,
// through up to three proxies from the pool.
type GeminiClient struct {
	apiKey string
	model  string
	pool   *ProxyPool

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiClient(apiKey string, model string, pool *ProxyPool) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		pool:    pool,
		clients: make(map[string]*genai.Client),
	}
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	if c.pool == nil {
		return c.generate(ctx, "", prompt, Apply(opts))
	}

	o := Apply(opts)
	var lastErr error
	for attempt := 0; attempt < geminiProxyAttempts; attempt++ {
		proxy, ok := c.pool.Get()
		if !ok {
			break
		}
		resp, err := c.generate(ctx, proxy, prompt, o)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrRateLimited) || ctx.Err() != nil {
			return "", err
		}
		slog.WarnContext(ctx, "gemini call through proxy failed", "proxy", proxy, "attempt", attempt+1, "error", err)
		c.pool.Invalidate(proxy)
		c.dropClient(proxy)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("proxy pool exhausted")
	}
	return "", fmt.Errorf("%w: gemini: %v", ErrNoResponse, lastErr)
}

func (c *GeminiClient) generate(ctx context.Context, proxy, prompt string, o Options) (string, error) {
	client, err := c.client(ctx, proxy)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(c.model)
	if o.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(o.System)}}
	}
	if o.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", err
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}

	return "", fmt.Errorf("no response candidates or content")
}

func (c *GeminiClient) client(ctx context.Context, proxy string) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[proxy]; ok {
		return client, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(c.apiKey)}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		// The REST transport ignores WithAPIKey once an HTTP client is supplied.
		opts = append(opts, option.WithHTTPClient(&http.Client{
			Transport: &apiKeyTransport{
				key:  c.apiKey,
				base: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
			},
		}))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	c.clients[proxy] = client
	return client, nil
}

func (c *GeminiClient) dropClient(proxy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[proxy]; ok {
		client.Close()
		delete(c.clients, proxy)
	}
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("x-goog-api-key", t.key)
	return t.base.RoundTrip(req)
}
