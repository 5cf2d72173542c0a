package store

import (
	"sort"
	"sync"

	"github.com/agenthands/beacon/internal/core/model"
)

// ProfileStore keeps survey answers per concept name. Update is safe to call
// from concurrent workers.
type ProfileStore struct {
	mu       sync.Mutex
	path     string
	profiles map[string]*model.Profile
}

func OpenProfiles(path string) (*ProfileStore, error) {
	s := &ProfileStore{path: path}
	if err := readJSON(path, &s.profiles); err != nil {
		return nil, err
	}
	if s.profiles == nil {
		s.profiles = make(map[string]*model.Profile)
	}
	return s, nil
}

func (s *ProfileStore) Get(name string) (model.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[name]
	if !ok {
		return model.Profile{}, false
	}
	out := *p
	out.Questions = append([]model.Question(nil), p.Questions...)
	out.Answers = make(map[string]any, len(p.Answers))
	for k, v := range p.Answers {
		out.Answers[k] = v
	}
	return out, true
}

// Update applies fn to the named profile, creating it if needed, and saves
// while still holding the lock.
func (s *ProfileStore) Update(name string, fn func(*model.Profile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[name]
	if !ok {
		p = &model.Profile{Name: name}
	}
	if p.Answers == nil {
		p.Answers = make(map[string]any)
	}
	fn(p)
	s.profiles[name] = p
	return writeJSON(s.path, s.profiles)
}

func (s *ProfileStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
