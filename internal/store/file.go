// Package store keeps the concept, category, event, cursor, post and profile
// registries as whole-file JSON documents under one directory. Each store
// loads its file once, serializes mutations with a mutex and rewrites the
// file atomically after every change. A missing file is an empty store.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	ConceptsFile      = "concepts.json"
	CategoriesFile    = "categories.json"
	EventsFile        = "events.json"
	SearchesFile      = "searches.json"
	TrialSearchesFile = "trial_searches.json"
	PostsFile         = "posts.json"
	ProfilesFile      = "profiles.json"
)

// readJSON decodes path into v. A missing file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %s: %w", path, err)
	}
	return nil
}

// writeJSON writes v to a temp file next to path and renames it into place.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}

// Store bundles every registry kept under one data directory.
type Store struct {
	Concepts      *ConceptStore
	Categories    *CategoryStore
	Events        *EventStore
	Searches      *CursorStore
	TrialSearches *CursorStore
	Posts         *PostLog
	Profiles      *ProfileStore
}

func Open(dir string) (*Store, error) {
	var (
		s   Store
		err error
	)
	if s.Concepts, err = OpenConcepts(filepath.Join(dir, ConceptsFile)); err != nil {
		return nil, err
	}
	if s.Categories, err = OpenCategories(filepath.Join(dir, CategoriesFile)); err != nil {
		return nil, err
	}
	if s.Events, err = OpenEvents(filepath.Join(dir, EventsFile)); err != nil {
		return nil, err
	}
	if s.Searches, err = OpenCursors(filepath.Join(dir, SearchesFile)); err != nil {
		return nil, err
	}
	if s.TrialSearches, err = OpenCursors(filepath.Join(dir, TrialSearchesFile)); err != nil {
		return nil, err
	}
	if s.Posts, err = OpenPostLog(filepath.Join(dir, PostsFile)); err != nil {
		return nil, err
	}
	if s.Profiles, err = OpenProfiles(filepath.Join(dir, ProfilesFile)); err != nil {
		return nil, err
	}
	return &s, nil
}
