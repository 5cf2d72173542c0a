package store

import (
	"sync"

	"github.com/agenthands/beacon/internal/core/model"
)

// PostLog is the append-only list of published events.
type PostLog struct {
	mu     sync.Mutex
	path   string
	posts  []model.Post
	posted map[string]bool
}

func OpenPostLog(path string) (*PostLog, error) {
	l := &PostLog{path: path, posted: make(map[string]bool)}
	if err := readJSON(path, &l.posts); err != nil {
		return nil, err
	}
	for _, p := range l.posts {
		l.posted[p.Event.URI] = true
	}
	return l, nil
}

func (l *PostLog) Contains(eventURI string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.posted[eventURI]
}

func (l *PostLog) Append(p model.Post) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.posts = append(l.posts, p)
	l.posted[p.Event.URI] = true
	return writeJSON(l.path, l.posts)
}

func (l *PostLog) All() []model.Post {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Post(nil), l.posts...)
}

// Events returns the snapshots of every posted event, oldest first.
func (l *PostLog) Events() []model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Event, len(l.posts))
	for i, p := range l.posts {
		out[i] = p.Event
	}
	return out
}
