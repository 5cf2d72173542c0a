// Package novelty decides whether an event adds information beyond what was
// already published on the same topic and writes its bullet summary.
package novelty

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/common"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/store"
)

const (
	// retries is how many times a malformed novelty answer is re-asked
	// without history.
	retries = 1

	maxPromptChars = 6000
	editorRole     = "You are an editor of a newsletter on child and adolescent health."
)

type Evaluator struct {
	LLM      llm.LLMClient
	Concepts *store.ConceptStore
	Prompts  config.Prompts
}

func NewEvaluator(llmClient llm.LLMClient, concepts *store.ConceptStore, prompts config.Prompts) *Evaluator {
	return &Evaluator{
		LLM:      llmClient,
		Concepts: concepts,
		Prompts:  prompts,
	}
}

type dominantResult struct {
	Concept string `json:"concept"`
}

type noveltyResult struct {
	Bullets   string `json:"bullets"`
	Important *bool  `json:"important"`
}

// Evaluate returns the event with its dominant concept and bullets set, and
// whether it is worth publishing given the already published history.
func (ev *Evaluator) Evaluate(ctx context.Context, e model.Event, history []model.Event) (model.Event, bool, error) {
	dominant := ev.dominantConcept(ctx, e)
	e.DominantConcept = dominant

	var related []model.Event
	if dominant != "" {
		for _, h := range history {
			if h.URI == e.URI {
				continue
			}
			if h.DominantConcept == dominant || h.HasConcept(dominant) {
				related = append(related, h)
			}
		}
	}

	bullets, important, err := ev.evaluate(ctx, e, related, retries)
	if err != nil {
		return e, false, err
	}
	e.Bullets = common.FormatBullets(bullets)
	slog.DebugContext(ctx, "novelty evaluated", "event", e.URI, "dominant", dominant, "history", len(related), "important", important)
	return e, important, nil
}

// evaluate asks for the novel bullets against related. A malformed answer is
// retried with empty history while attempts remain; without history the
// event is a plain summary and always important.
func (ev *Evaluator) evaluate(ctx context.Context, e model.Event, related []model.Event, attempts int) (string, bool, error) {
	if len(related) == 0 {
		bullets, err := ev.summarize(ctx, e)
		if err != nil {
			return "", false, err
		}
		return bullets, true, nil
	}

	prompt := fmt.Sprintf(ev.Prompts.Novelty, ev.conceptName(e.DominantConcept), priorSummaries(related), e.EnglishTitle(), eventText(e))
	resp, err := ev.LLM.Generate(ctx, prompt, llm.WithSystem(editorRole), llm.WithJSON())
	if err != nil {
		slog.WarnContext(ctx, "novelty check failed, summarizing without history", "event", e.URI, "error", err)
		return ev.evaluate(ctx, e, nil, 0)
	}
	result, err := common.ParseJSON[noveltyResult](resp)
	if err != nil || result.Important == nil || result.Bullets == "" {
		if attempts <= 0 {
			return ev.evaluate(ctx, e, nil, 0)
		}
		slog.WarnContext(ctx, "malformed novelty answer, retrying without history", "event", e.URI, "error", err)
		return ev.evaluate(ctx, e, nil, attempts-1)
	}
	return result.Bullets, *result.Important, nil
}

func (ev *Evaluator) summarize(ctx context.Context, e model.Event) (string, error) {
	prompt := fmt.Sprintf(ev.Prompts.Summary, e.EnglishTitle(), eventText(e))
	resp, err := ev.LLM.Generate(ctx, prompt, llm.WithSystem(editorRole))
	if err != nil {
		return "", fmt.Errorf("failed to summarize %s: %w", e.URI, err)
	}
	return strings.TrimSpace(resp), nil
}

// dominantConcept lets the model pick one of the event's concepts. A single
// concept needs no call; an answer outside the candidates falls back to the
// most relevant candidate.
func (ev *Evaluator) dominantConcept(ctx context.Context, e model.Event) string {
	switch len(e.Concepts) {
	case 0:
		return ""
	case 1:
		return e.Concepts[0]
	}

	var candidates strings.Builder
	for _, uri := range e.Concepts {
		fmt.Fprintf(&candidates, "%s: %s\n", uri, ev.conceptName(uri))
	}
	prompt := fmt.Sprintf(ev.Prompts.DominantConcept, e.EnglishTitle(), common.Truncate(e.EnglishSummary(), maxPromptChars), candidates.String())
	resp, err := ev.LLM.Generate(ctx, prompt, llm.WithJSON())
	if err == nil {
		result, perr := common.ParseJSON[dominantResult](resp)
		if perr == nil && e.HasConcept(result.Concept) {
			return result.Concept
		}
		err = perr
	}
	slog.DebugContext(ctx, "dominant concept fallback", "event", e.URI, "error", err)
	return ev.mostRelevant(e.Concepts)
}

func (ev *Evaluator) mostRelevant(uris []string) string {
	best, bestScore := uris[0], -1.0
	for _, uri := range uris {
		c, ok := ev.Concepts.Get(uri)
		if !ok {
			continue
		}
		if v := c.EffectiveRelevance(); v > bestScore {
			best, bestScore = uri, v
		}
	}
	return best
}

func (ev *Evaluator) conceptName(uri string) string {
	if c, ok := ev.Concepts.Get(uri); ok && c.Name != "" {
		return c.Name
	}
	return uri
}

func priorSummaries(events []model.Event) string {
	var b strings.Builder
	for _, e := range events {
		text := e.Bullets
		if text == "" {
			text = common.Truncate(e.EnglishSummary(), 500)
		}
		fmt.Fprintf(&b, "- %s (%s):%s\n", e.EnglishTitle(), e.EventDate, indent(text))
	}
	return b.String()
}

func indent(text string) string {
	if strings.HasPrefix(text, "\n") {
		return strings.ReplaceAll(text, "\n", "\n  ")
	}
	return " " + text
}

func eventText(e model.Event) string {
	text := e.ArticleBody()
	if text == "" {
		text = e.EnglishSummary()
	}
	return common.Truncate(text, maxPromptChars)
}
