package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agenthands/beacon/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFilesAreEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	assert.Empty(t, s.Concepts.All())
	assert.Empty(t, s.Categories.All())
	assert.Zero(t, s.Events.Len())
	assert.Empty(t, s.Posts.All())
	_, ok := s.Searches.Get("c1")
	assert.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "opening must not create files")
}

func TestOpen_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, EventsFile), []byte("{not json"), 0o644))
	_, err := Open(dir)
	assert.Error(t, err)
}

func TestConceptStore_PersistsBuckets(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConceptsFile)
	s, err := OpenConcepts(path)
	require.NoError(t, err)

	require.NoError(t, s.Put(model.Concept{URI: "c1", Name: "Measles", Category: model.CategoryCondition, RelevanceScore: 80}))
	require.NoError(t, s.Put(model.Concept{URI: "c1", Name: "Measles", Category: model.CategoryCondition, RelevanceScore: 80, Approved: true}))
	require.NoError(t, s.Put(model.Concept{URI: "c2", Name: "Pending"}))
	require.NoError(t, s.LinkEvents(map[string][]string{"c1": {"e1", "e1", "e2"}, "missing": {"e3"}}))

	reopened, err := OpenConcepts(path)
	require.NoError(t, err)
	c, ok := reopened.Get("c1")
	require.True(t, ok)
	assert.True(t, c.Approved)
	assert.Equal(t, []string{"e1", "e2"}, c.Events)
	assert.Equal(t, []string{"c1"}, reopened.Bucket(model.CategoryCondition))
	assert.Len(t, reopened.Approved(), 1)

	// callers cannot mutate stored state through returned values
	c.Events[0] = "changed"
	again, _ := reopened.Get("c1")
	assert.Equal(t, "e1", again.Events[0])
}

func TestCategoryStore_LinksOnlyApproved(t *testing.T) {
	path := filepath.Join(t.TempDir(), CategoriesFile)
	s, err := OpenCategories(path)
	require.NoError(t, err)

	require.NoError(t, s.Put(model.Category{URI: "dmoz/Health", Approved: true}))
	require.NoError(t, s.Put(model.Category{URI: "dmoz/Health/Child_Health", ParentURI: "dmoz/Health"}))
	require.NoError(t, s.LinkEvents(map[string][]string{
		"dmoz/Health":              {"e1"},
		"dmoz/Health/Child_Health": {"e1"},
	}))

	reopened, err := OpenCategories(path)
	require.NoError(t, err)
	all := reopened.All()
	require.Len(t, all, 2)
	assert.Equal(t, "dmoz/Health", all[0].URI)
	assert.Equal(t, []string{"e1"}, all[0].Events)
	assert.Empty(t, all[1].Events)
}

func TestCategoryStore_DropsDuplicatesOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), CategoriesFile)
	require.NoError(t, os.WriteFile(path, []byte(`[{"uri":"dmoz/Health","approved":true,"events":[]},{"uri":"dmoz/Health","approved":false,"events":[]}]`), 0o644))

	s, err := OpenCategories(path)
	require.NoError(t, err)
	require.Len(t, s.All(), 1)
	c, _ := s.Get("dmoz/Health")
	assert.True(t, c.Approved)
}

func TestEventStore_Order(t *testing.T) {
	path := filepath.Join(t.TempDir(), EventsFile)
	s, err := OpenEvents(path)
	require.NoError(t, err)

	require.NoError(t, s.PutAll([]model.Event{
		{URI: "b", EventDate: "2024-05-01", Concepts: []string{"c1"}},
		{URI: "a", EventDate: "2024-05-01"},
		{URI: "c", EventDate: "2024-06-01", Categories: []string{"dmoz/Health"}},
	}))

	reopened, err := OpenEvents(path)
	require.NoError(t, err)
	var uris []string
	for _, e := range reopened.All() {
		uris = append(uris, e.URI)
	}
	assert.Equal(t, []string{"c", "a", "b"}, uris)
	assert.Equal(t, []string{"b"}, reopened.WithConcept("c1"))
	assert.Equal(t, []string{"c"}, reopened.WithCategory("dmoz/Health"))
}

func TestEventStore_ReturnsCopies(t *testing.T) {
	s, err := OpenEvents(filepath.Join(t.TempDir(), EventsFile))
	require.NoError(t, err)

	score := 40.0
	in := model.Event{
		URI:              "e1",
		Title:            map[string]string{"deu": "Titel"},
		Concepts:         []string{"c1"},
		Stories:          []model.Story{{URI: "s1", MedoidArticle: &model.Article{Body: "Text"}}},
		AIRelevanceScore: &score,
	}
	require.NoError(t, s.Put(in))
	in.Title["eng"] = "changed after put"

	got, ok := s.Get("e1")
	require.True(t, ok)
	got.Title["eng"] = "unsaved"
	got.Concepts[0] = "c2"
	got.Stories[0].MedoidArticle.Body = "edited"
	*got.AIRelevanceScore = 99

	for _, e := range append(s.All(), mustGet(t, s, "e1")) {
		assert.Empty(t, e.Title["eng"])
		assert.Equal(t, []string{"c1"}, e.Concepts)
		assert.Equal(t, "Text", e.Stories[0].MedoidArticle.Body)
		assert.Equal(t, 40.0, *e.AIRelevanceScore)
	}
}

func mustGet(t *testing.T, s *EventStore, uri string) model.Event {
	t.Helper()
	e, ok := s.Get(uri)
	require.True(t, ok)
	return e
}

func TestCursorStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), SearchesFile)
	s, err := OpenCursors(path)
	require.NoError(t, err)
	require.NoError(t, s.PutAll(map[string]model.Cursor{"c1": {LastSearchDate: "2024-05-10", DataSince: "2024-04-09"}}))

	reopened, err := OpenCursors(path)
	require.NoError(t, err)
	c, ok := reopened.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "2024-04-09", c.DataSince)
}

func TestPostLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), PostsFile)
	l, err := OpenPostLog(path)
	require.NoError(t, err)

	require.NoError(t, l.Append(model.Post{ID: "p1", PostedAt: time.Now().UTC(), Event: model.Event{URI: "e1"}}))
	assert.True(t, l.Contains("e1"))

	reopened, err := OpenPostLog(path)
	require.NoError(t, err)
	assert.True(t, reopened.Contains("e1"))
	assert.False(t, reopened.Contains("e2"))
	assert.Len(t, reopened.Events(), 1)
}

func TestProfileStore_ConcurrentUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProfilesFile)
	s, err := OpenProfiles(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("org-%d", i%4)
			assert.NoError(t, s.Update(name, func(p *model.Profile) {
				p.Answers[fmt.Sprintf("q%d", i)] = i
			}))
		}(i)
	}
	wg.Wait()

	reopened, err := OpenProfiles(path)
	require.NoError(t, err)
	total := 0
	for _, name := range reopened.Names() {
		p, _ := reopened.Get(name)
		total += len(p.Answers)
	}
	assert.Equal(t, 20, total)
}
