// Package search talks to the external event and clinical-trial search APIs.
// Both clients paginate internally and hand back one flat list of raw events.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agenthands/beacon/internal/core/model"
)

// ErrRequestTooLarge is returned on HTTP 414. Callers split the concept set
// and retry each half.
var ErrRequestTooLarge = errors.New("search: request too large")

// Query selects events mentioning any of the concepts, optionally narrowed to
// any of the categories, dated within [Start, End]. A zero Start asks for the
// provider's default window.
type Query struct {
	ConceptURIs  []string
	CategoryURIs []string
	Start        time.Time
	End          time.Time
}

type Searcher interface {
	Search(ctx context.Context, q Query) ([]model.RawEvent, error)
}

// StatusError is a non-success HTTP answer other than 414.
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Source, e.StatusCode, e.Body)
}

// checkStatus maps a response status to ErrRequestTooLarge or a StatusError.
func checkStatus(source string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusRequestURITooLong:
		return ErrRequestTooLarge
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Source: source, StatusCode: resp.StatusCode, Body: string(body)}
	}
}
