package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/model"
)

const (
	// DefaultWindowDays is what the API searches when no date range is set.
	DefaultWindowDays = 31

	suggestTries = 3
)

// ErrConceptNotFound is returned when no concept matches a label.
var ErrConceptNotFound = errors.New("search: concept not found")

// EventRegistry queries the Event Registry getEvents endpoint.
type EventRegistry struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

func NewEventRegistry(cfg config.NewsConfig) *EventRegistry {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &EventRegistry{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type eventsPage struct {
	Events struct {
		Results []model.RawEvent `json:"results"`
		Pages   int              `json:"pages"`
		Total   int              `json:"totalResults"`
	} `json:"events"`
}

// Search fetches every page for the query. An undecodable page is logged and
// ends the pagination with what was collected so far.
func (c *EventRegistry) Search(ctx context.Context, q Query) ([]model.RawEvent, error) {
	var all []model.RawEvent
	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, q, page)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			break
		}
		for _, e := range resp.Events.Results {
			e.Source = model.SourceNews
			all = append(all, e)
		}
		if page >= resp.Events.Pages {
			break
		}
	}
	return all, nil
}

func (c *EventRegistry) fetchPage(ctx context.Context, q Query, page int) (*eventsPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("resultType", "events")
	params.Set("includeEventConcepts", "true")
	params.Set("includeEventCategories", "true")
	params.Set("includeEventStories", "true")
	params.Set("includeStoryMedoidArticle", "true")
	params.Set("eventImageCount", "1")
	for _, uri := range q.ConceptURIs {
		params.Add("conceptUri", uri)
	}
	if len(q.ConceptURIs) > 1 {
		params.Set("conceptOper", "or")
	}
	for _, uri := range q.CategoryURIs {
		params.Add("categoryUri", uri)
	}
	if len(q.CategoryURIs) > 1 {
		params.Set("categoryOper", "or")
	}
	if !q.Start.IsZero() {
		params.Set("dateStart", model.FormatDay(q.Start))
		end := q.End
		if end.IsZero() {
			end = time.Now()
		}
		params.Set("dateEnd", model.FormatDay(end))
	} else {
		params.Set("forceMaxDataTimeWindow", strconv.Itoa(DefaultWindowDays))
	}
	if page > 1 {
		params.Set("eventsPage", strconv.Itoa(page))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/event/getEvents?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build events request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("events request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("eventregistry", resp); err != nil {
		return nil, err
	}

	var out eventsPage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		slog.WarnContext(ctx, "undecodable events response, treating as empty", "page", page, "error", err)
		return nil, nil
	}
	return &out, nil
}

type suggestRequest struct {
	Prefix      string   `json:"prefix"`
	Source      []string `json:"source"`
	Lang        string   `json:"lang"`
	ConceptLang []string `json:"conceptLang"`
	APIKey      string   `json:"apiKey"`
}

// SuggestConcept resolves a free-text label to a concept uri. The endpoint
// occasionally answers without a uri, so it is asked up to three times.
func (c *EventRegistry) SuggestConcept(ctx context.Context, label string) (string, error) {
	body, err := json.Marshal(suggestRequest{
		Prefix:      label,
		Source:      []string{"concepts"},
		Lang:        model.LangEnglish,
		ConceptLang: []string{model.LangEnglish},
		APIKey:      c.apiKey,
	})
	if err != nil {
		return "", err
	}

	for try := 0; try < suggestTries; try++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		uri, err := c.suggest(ctx, body)
		if err != nil {
			return "", err
		}
		if uri != "" {
			return uri, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrConceptNotFound, label)
}

func (c *EventRegistry) suggest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/suggestConceptsFast", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build suggest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("suggest request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("eventregistry", resp); err != nil {
		return "", err
	}

	var suggestions []struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&suggestions); err != nil {
		return "", fmt.Errorf("decode suggestions: %w", err)
	}
	if len(suggestions) == 0 {
		return "", fmt.Errorf("%w: no suggestions", ErrConceptNotFound)
	}
	return suggestions[0].URI, nil
}
