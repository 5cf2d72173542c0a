package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agenthands/beacon/internal/config"
)

// ErrDelivery marks a message the webhook did not accept. The event stays
// unposted and is offered again on the next run.
var ErrDelivery = errors.New("publish: delivery failed")

type Poster interface {
	Post(ctx context.Context, msg Message) error
}

// SlackWebhook posts messages to a Slack incoming webhook.
type SlackWebhook struct {
	url  string
	http *http.Client
}

func NewSlackWebhook(cfg config.SlackConfig) *SlackWebhook {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackWebhook{url: cfg.WebhookURL, http: &http.Client{Timeout: timeout}}
}

func (s *SlackWebhook) Post(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, body)
	}
	return nil
}
