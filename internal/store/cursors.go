package store

import (
	"sync"

	"github.com/agenthands/beacon/internal/core/model"
)

// CursorStore holds one search cursor per concept uri.
type CursorStore struct {
	mu      sync.Mutex
	path    string
	cursors map[string]model.Cursor
}

func OpenCursors(path string) (*CursorStore, error) {
	s := &CursorStore{path: path}
	if err := readJSON(path, &s.cursors); err != nil {
		return nil, err
	}
	if s.cursors == nil {
		s.cursors = make(map[string]model.Cursor)
	}
	return s, nil
}

func (s *CursorStore) Get(uri string) (model.Cursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cursors[uri]
	return c, ok
}

// PutAll stores the cursors and saves once.
func (s *CursorStore) PutAll(cursors map[string]model.Cursor) error {
	if len(cursors) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for uri, c := range cursors {
		s.cursors[uri] = c
	}
	return writeJSON(s.path, s.cursors)
}
