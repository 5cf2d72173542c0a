// Package survey asks one question about every approved organization and
// stores the typed answers in their profiles.
package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/common"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/llm"
	"github.com/agenthands/beacon/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	TypeInteger    = "integer"
	TypeString     = "string"
	TypeFloat      = "float"
	TypeBoolean    = "boolean"
	TypeList       = "list"
	TypeDictionary = "dictionary"
)

var (
	ErrNoProperty = errors.New("survey: model gave no property name")

	propertyChars = regexp.MustCompile(`[^a-z0-9_]+`)
)

var instructions = map[string]string{
	TypeInteger:    "Please provide an integer value as the answer and nothing else.",
	TypeFloat:      "Please provide a float value as the answer and nothing else.",
	TypeBoolean:    "Please provide a boolean value (True or False) as the answer and nothing else.",
	TypeList:       "Please provide a JSON list as the answer and nothing else.",
	TypeDictionary: "Please provide a JSON dictionary value as the answer and nothing else.",
}

type Surveyor struct {
	LLM      llm.LLMClient
	Concepts *store.ConceptStore
	Profiles *store.ProfileStore
	Prompts  config.Prompts
	// Concurrency bounds the questions in flight.
	Concurrency int
}

func NewSurveyor(llmClient llm.LLMClient, concepts *store.ConceptStore, profiles *store.ProfileStore, prompts config.Prompts, concurrency int) *Surveyor {
	return &Surveyor{
		LLM:         llmClient,
		Concepts:    concepts,
		Profiles:    profiles,
		Prompts:     prompts,
		Concurrency: concurrency,
	}
}

type Result struct {
	Question string         `json:"question"`
	Property string         `json:"property"`
	Type     string         `json:"type"`
	Answers  map[string]any `json:"answers"`
	Failed   []string       `json:"failed,omitempty"`
}

// Ask derives the property name and type once, then asks every approved
// organization. Unanswered or uncoercible answers are reported in Failed;
// a profile store failure aborts the survey.
func (s *Surveyor) Ask(ctx context.Context, question string) (Result, error) {
	q := strings.TrimSpace(strings.ReplaceAll(question, "?", ""))
	if q == "" {
		return Result{}, errors.New("survey: empty question")
	}

	property, err := s.property(ctx, q)
	if err != nil {
		return Result{}, err
	}
	typ, err := s.answerType(ctx, q)
	if err != nil {
		return Result{}, err
	}
	res := Result{Question: q, Property: property, Type: typ, Answers: make(map[string]any)}
	slog.InfoContext(ctx, "survey started", "property", property, "type", typ)

	var orgs []model.Concept
	for _, c := range s.Concepts.Approved() {
		if c.Category == model.CategoryOrganization {
			orgs = append(orgs, c)
		}
	}

	var mu sync.Mutex
	limit := s.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, org := range orgs {
		org := org
		g.Go(func() error {
			name := org.Name
			if name == "" {
				name = org.URI
			}
			value, err := s.askOne(gctx, name, q, typ)
			if err != nil {
				slog.WarnContext(gctx, "no usable answer", "organization", name, "error", err)
				mu.Lock()
				res.Failed = append(res.Failed, name)
				mu.Unlock()
				return nil
			}

			err = s.Profiles.Update(name, func(p *model.Profile) {
				p.URI = org.URI
				if !hasQuestion(p.Questions, property) {
					p.Questions = append(p.Questions, model.Question{Text: q, Property: property, Type: typ})
				}
				p.Answers[property] = value
			})
			if err != nil {
				return fmt.Errorf("failed to save profile %s: %w", name, err)
			}
			mu.Lock()
			res.Answers[name] = value
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	slog.InfoContext(ctx, "survey finished", "property", property, "answered", len(res.Answers), "failed", len(res.Failed))
	return res, nil
}

func (s *Surveyor) askOne(ctx context.Context, name, q, typ string) (any, error) {
	prompt := fmt.Sprintf(s.Prompts.SurveyQuestion, name, q, instructions[typ])
	answer, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return Coerce(typ, answer)
}

func (s *Surveyor) property(ctx context.Context, q string) (string, error) {
	resp, err := s.LLM.Generate(ctx, fmt.Sprintf(s.Prompts.SurveyPropertyName, q))
	if err != nil {
		return "", fmt.Errorf("failed to name property: %w", err)
	}
	name := strings.ToLower(strings.TrimSpace(resp))
	name = strings.Trim(name, "`'\".")
	name = strings.ReplaceAll(name, " ", "_")
	name = propertyChars.ReplaceAllString(name, "")
	if name == "" {
		return "", ErrNoProperty
	}
	return name, nil
}

// answerType maps the model answer onto a known type, defaulting to string.
func (s *Surveyor) answerType(ctx context.Context, q string) (string, error) {
	resp, err := s.LLM.Generate(ctx, fmt.Sprintf(s.Prompts.SurveyPropertyType, q))
	if err != nil {
		return "", fmt.Errorf("failed to type property: %w", err)
	}
	typ := strings.ToLower(strings.Trim(strings.TrimSpace(resp), "`'\"."))
	switch typ {
	case TypeInteger, TypeFloat, TypeBoolean, TypeList, TypeDictionary, TypeString:
		return typ, nil
	default:
		return TypeString, nil
	}
}

// Coerce converts a raw answer to the requested type.
func Coerce(typ, answer string) (any, error) {
	a := strings.TrimSpace(answer)
	if a == "" {
		return nil, errors.New("empty answer")
	}
	switch typ {
	case TypeInteger:
		if i, err := strconv.Atoi(a); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(a, 64)
		if err != nil || f != float64(int(f)) {
			return nil, fmt.Errorf("not an integer: %q", a)
		}
		return int(f), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("not a float: %q", a)
		}
		return f, nil
	case TypeBoolean:
		switch strings.ToLower(strings.Trim(a, ".")) {
		case "true", "yes":
			return true, nil
		case "false", "no":
			return false, nil
		}
		return nil, fmt.Errorf("not a boolean: %q", a)
	case TypeList:
		start, end := strings.IndexByte(a, '['), strings.LastIndexByte(a, ']')
		if start == -1 || end < start {
			return nil, fmt.Errorf("not a list: %q", a)
		}
		var list []any
		if err := json.Unmarshal([]byte(a[start:end+1]), &list); err != nil {
			return nil, fmt.Errorf("not a list: %w", err)
		}
		return list, nil
	case TypeDictionary:
		dict, err := common.ParseJSON[map[string]any](a)
		if err != nil {
			return nil, err
		}
		return dict, nil
	default:
		return a, nil
	}
}

func hasQuestion(questions []model.Question, property string) bool {
	for _, q := range questions {
		if q.Property == property {
			return true
		}
	}
	return false
}
