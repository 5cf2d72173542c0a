package store

import (
	"sync"

	"github.com/agenthands/beacon/internal/core/model"
)

// CategoryStore is the category registry, persisted as a list in discovery
// order.
type CategoryStore struct {
	mu    sync.Mutex
	path  string
	list  []model.Category
	index map[string]int
}

func OpenCategories(path string) (*CategoryStore, error) {
	s := &CategoryStore{path: path, index: make(map[string]int)}
	var list []model.Category
	if err := readJSON(path, &list); err != nil {
		return nil, err
	}
	// earlier files may carry duplicates; the first entry wins
	for _, c := range list {
		if _, ok := s.index[c.URI]; ok {
			continue
		}
		s.index[c.URI] = len(s.list)
		s.list = append(s.list, c)
	}
	return s, nil
}

func (s *CategoryStore) Get(uri string) (model.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[uri]
	if !ok {
		return model.Category{}, false
	}
	return cloneCategory(s.list[i]), true
}

func (s *CategoryStore) Put(c model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c = cloneCategory(c)
	if i, ok := s.index[c.URI]; ok {
		s.list[i] = c
	} else {
		s.index[c.URI] = len(s.list)
		s.list = append(s.list, c)
	}
	return writeJSON(s.path, s.list)
}

// LinkEvents appends event uris to approved categories and saves once.
// Unapproved or unknown categories are ignored.
func (s *CategoryStore) LinkEvents(links map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for uri, events := range links {
		i, ok := s.index[uri]
		if !ok || !s.list[i].Approved {
			continue
		}
		for _, e := range events {
			if s.list[i].AddEvent(e) {
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	return writeJSON(s.path, s.list)
}

func (s *CategoryStore) All() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Category, len(s.list))
	for i, c := range s.list {
		out[i] = cloneCategory(c)
	}
	return out
}

func (s *CategoryStore) Approved() []model.Category {
	var out []model.Category
	for _, c := range s.All() {
		if c.Approved {
			out = append(out, c)
		}
	}
	return out
}

func cloneCategory(c model.Category) model.Category {
	c.Events = append([]string{}, c.Events...)
	return c
}
