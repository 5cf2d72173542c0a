package store

import (
	"sort"
	"sync"

	"github.com/agenthands/beacon/internal/core/model"
)

type conceptsDoc struct {
	Concepts       map[string]*model.Concept          `json:"concepts"`
	Classification map[model.ConceptCategory][]string `json:"classification"`
}

// ConceptStore is the concept registry: concepts by uri plus one uri bucket
// per classification category.
type ConceptStore struct {
	mu   sync.Mutex
	path string
	doc  conceptsDoc
}

func OpenConcepts(path string) (*ConceptStore, error) {
	s := &ConceptStore{path: path}
	if err := readJSON(path, &s.doc); err != nil {
		return nil, err
	}
	if s.doc.Concepts == nil {
		s.doc.Concepts = make(map[string]*model.Concept)
	}
	if s.doc.Classification == nil {
		s.doc.Classification = make(map[model.ConceptCategory][]string)
	}
	return s, nil
}

func (s *ConceptStore) Get(uri string) (model.Concept, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.doc.Concepts[uri]
	if !ok {
		return model.Concept{}, false
	}
	return clone(*c), true
}

// Put replaces the concept, files it under its category bucket and saves.
func (s *ConceptStore) Put(c model.Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := clone(c)
	s.doc.Concepts[c.URI] = &stored
	if c.Category != "" {
		bucket := s.doc.Classification[c.Category]
		if !contains(bucket, c.URI) {
			s.doc.Classification[c.Category] = append(bucket, c.URI)
		}
	}
	return writeJSON(s.path, s.doc)
}

// LinkEvents appends event uris to the given concepts and saves once.
// Unknown concept uris are ignored.
func (s *ConceptStore) LinkEvents(links map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for uri, events := range links {
		c, ok := s.doc.Concepts[uri]
		if !ok {
			continue
		}
		for _, e := range events {
			if c.AddEvent(e) {
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	return writeJSON(s.path, s.doc)
}

// All returns every concept ordered by uri.
func (s *ConceptStore) All() []model.Concept {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Concept, 0, len(s.doc.Concepts))
	for _, c := range s.doc.Concepts {
		out = append(out, clone(*c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

func (s *ConceptStore) Approved() []model.Concept {
	var out []model.Concept
	for _, c := range s.All() {
		if c.Approved {
			out = append(out, c)
		}
	}
	return out
}

func (s *ConceptStore) Bucket(category model.ConceptCategory) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.doc.Classification[category]...)
}

func clone(c model.Concept) model.Concept {
	c.Events = append([]string(nil), c.Events...)
	return c
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
