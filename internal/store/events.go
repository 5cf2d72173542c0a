package store

import (
	"sort"
	"sync"

	"github.com/agenthands/beacon/internal/core/model"
)

// EventStore holds events keyed by uri.
type EventStore struct {
	mu     sync.Mutex
	path   string
	events map[string]model.Event
}

func OpenEvents(path string) (*EventStore, error) {
	s := &EventStore{path: path}
	if err := readJSON(path, &s.events); err != nil {
		return nil, err
	}
	if s.events == nil {
		s.events = make(map[string]model.Event)
	}
	return s, nil
}

func (s *EventStore) Get(uri string) (model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[uri]
	if !ok {
		return model.Event{}, false
	}
	return cloneEvent(e), true
}

func (s *EventStore) Put(e model.Event) error {
	return s.PutAll([]model.Event{e})
}

// PutAll replaces the given events and saves once.
func (s *EventStore) PutAll(events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.events[e.URI] = cloneEvent(e)
	}
	return writeJSON(s.path, s.events)
}

// All returns every event, newest first with ties broken by uri.
func (s *EventStore) All() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, cloneEvent(e))
	}
	sortEvents(out)
	return out
}

// Find returns the events matching pred, in All order.
func (s *EventStore) Find(pred func(model.Event) bool) []model.Event {
	var out []model.Event
	for _, e := range s.All() {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// WithConcept returns the uris of events that reference the concept.
func (s *EventStore) WithConcept(uri string) []string {
	var out []string
	for _, e := range s.Find(func(e model.Event) bool { return e.HasConcept(uri) }) {
		out = append(out, e.URI)
	}
	return out
}

func (s *EventStore) WithCategory(uri string) []string {
	var out []string
	for _, e := range s.Find(func(e model.Event) bool { return e.HasCategory(uri) }) {
		out = append(out, e.URI)
	}
	return out
}

func (s *EventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func sortEvents(events []model.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].EventDate != events[j].EventDate {
			return events[i].EventDate > events[j].EventDate
		}
		return events[i].URI < events[j].URI
	})
}

// cloneEvent copies every map, slice and pointer so callers never share
// state with the store.
func cloneEvent(e model.Event) model.Event {
	e.Title = cloneText(e.Title)
	e.Summary = cloneText(e.Summary)
	e.Concepts = cloneStrings(e.Concepts)
	e.Categories = cloneStrings(e.Categories)
	e.Images = cloneStrings(e.Images)
	if e.Stories != nil {
		stories := make([]model.Story, len(e.Stories))
		for i, st := range e.Stories {
			if st.MedoidArticle != nil {
				a := *st.MedoidArticle
				st.MedoidArticle = &a
			}
			stories[i] = st
		}
		e.Stories = stories
	}
	if e.ConceptRelevanceScore != nil {
		v := *e.ConceptRelevanceScore
		e.ConceptRelevanceScore = &v
	}
	if e.AIRelevanceScore != nil {
		v := *e.AIRelevanceScore
		e.AIRelevanceScore = &v
	}
	return e
}

func cloneText(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStrings(list []string) []string {
	if list == nil {
		return nil
	}
	return append(make([]string, 0, len(list)), list...)
}
