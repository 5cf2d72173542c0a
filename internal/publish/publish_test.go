package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/model"
	"github.com/agenthands/beacon/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPublisher(t *testing.T, poster Poster) (*Publisher, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	p := NewPublisher(poster, s.Posts, s.Concepts)
	p.Now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	return p, s
}

func scored(uri string, score float64) model.ScoredEvent {
	return model.ScoredEvent{
		Event: model.Event{
			URI:       uri,
			Title:     map[string]string{model.LangEnglish: "Title " + uri},
			Summary:   map[string]string{model.LangEnglish: "Summary " + uri},
			EventDate: "2024-03-14",
			URL:       "https://example.org/" + uri,
		},
		Score: score,
	}
}

func TestRender_Layout(t *testing.T) {
	e := model.Event{
		URI:       "e1",
		Title:     map[string]string{model.LangEnglish: "Malaria vaccine rollout"},
		EventDate: "2024-03-14",
		Bullets:   "\n• First point\n• Second point",
		Stories: []model.Story{{MedoidArticle: &model.Article{
			URL:   "https://news.example/article",
			Image: "https://news.example/img.png",
		}}},
	}
	msg := Render(e, []string{"a", "b", "c", "d", "e", "f"})

	require.Len(t, msg.Blocks, 4)
	assert.Equal(t, "*Malaria vaccine rollout*\n2024-03-14", msg.Blocks[0].Text.Text)
	require.NotNil(t, msg.Blocks[0].Accessory)
	assert.Equal(t, "https://news.example/img.png", msg.Blocks[0].Accessory.ImageURL)
	assert.Equal(t, "\n• First point\n• Second point", msg.Blocks[1].Text.Text)
	assert.Equal(t, "*Concepts:* a, b, c, d, e", msg.Blocks[2].Text.Text)
	assert.Equal(t, "actions", msg.Blocks[3].Type)
	assert.Equal(t, "https://news.example/article", msg.Blocks[3].Elements[0].URL)
	assert.Equal(t, "Read more", msg.Blocks[3].Elements[0].Text.Text)
}

func TestRender_TrialWithoutImage(t *testing.T) {
	e := model.Event{
		URI:       "NCT1",
		Title:     map[string]string{model.LangEnglish: "RSV in infants"},
		Summary:   map[string]string{model.LangEnglish: "[PHASE3, RECRUITING] A study"},
		EventDate: "2024-03-01",
		Source:    model.SourceTrials,
		URL:       "https://clinicaltrials.gov/study/NCT1",
	}
	msg := Render(e, nil)

	require.Len(t, msg.Blocks, 3)
	assert.Equal(t, "*New trial:* RSV in infants\n2024-03-01", msg.Blocks[0].Text.Text)
	assert.Nil(t, msg.Blocks[0].Accessory)
	assert.Equal(t, "[PHASE3, RECRUITING] A study", msg.Blocks[1].Text.Text)
	assert.Equal(t, "https://clinicaltrials.gov/study/NCT1", msg.Blocks[2].Elements[0].URL)
}

func TestPublish_NeverRepostsAURI(t *testing.T) {
	poster := &MockPoster{}
	p, s := newPublisher(t, poster)

	ok, err := p.Publish(context.Background(), scored("e1", 100))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Publish(context.Background(), scored("e1", 100))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Len(t, poster.Messages, 1)
	posts := s.Posts.All()
	require.Len(t, posts, 1)
	assert.NotEmpty(t, posts[0].ID)
	assert.Equal(t, "e1", posts[0].Event.URI)
}

func TestPublish_DeliveryFailureIsNotLogged(t *testing.T) {
	p, s := newPublisher(t, &MockPoster{FailOn: map[string]bool{"Title e1": true}})

	ok, err := p.Publish(context.Background(), scored("e1", 100))
	assert.ErrorIs(t, err, ErrDelivery)
	assert.False(t, ok)
	assert.False(t, s.Posts.Contains("e1"))
}

func TestPublishBatch_OrderThresholdAndLimit(t *testing.T) {
	poster := &MockPoster{}
	p, s := newPublisher(t, poster)
	require.NoError(t, s.Posts.Append(model.Post{ID: "old", Event: model.Event{URI: "posted"}}))

	events := []model.ScoredEvent{
		scored("low", 40),
		scored("mid", 90),
		scored("posted", 120),
		scored("top", 110),
		scored("high", 95),
	}
	report, err := p.PublishBatch(context.Background(), events, 50, 2)
	require.NoError(t, err)

	require.Len(t, report.Posted, 2)
	assert.Equal(t, "top", report.Posted[0].Event.URI)
	assert.Equal(t, "high", report.Posted[1].Event.URI)
	assert.Len(t, poster.Messages, 2)

	report, err = p.PublishBatch(context.Background(), events, 50, 5)
	require.NoError(t, err)
	require.Len(t, report.Posted, 1)
	assert.Equal(t, "mid", report.Posted[0].Event.URI)
}

func TestPublishBatch_FailuresDoNotCount(t *testing.T) {
	poster := &MockPoster{FailOn: map[string]bool{"Title a": true}}
	p, s := newPublisher(t, poster)

	report, err := p.PublishBatch(context.Background(), []model.ScoredEvent{scored("a", 100), scored("b", 90)}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, report.Failed)
	require.Len(t, report.Posted, 1)
	assert.Equal(t, "b", report.Posted[0].Event.URI)
	assert.False(t, s.Posts.Contains("a"))
}

func TestPublishBatch_Gate(t *testing.T) {
	poster := &MockPoster{}
	p, _ := newPublisher(t, poster)
	var gated []string
	p.Gate = func(ctx context.Context, e model.Event) (model.Event, bool, error) {
		gated = append(gated, e.URI)
		switch e.URI {
		case "dup":
			return e, false, nil
		case "broken":
			return e, false, errors.New("model down")
		}
		e.Bullets = "\n• new"
		return e, true, nil
	}

	events := []model.ScoredEvent{scored("dup", 100), scored("broken", 90), scored("fresh", 80), scored("never", 70)}
	report, err := p.PublishBatch(context.Background(), events, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"dup", "broken", "fresh"}, gated)
	assert.Equal(t, []string{"dup"}, report.Skipped)
	assert.Equal(t, []string{"broken"}, report.Failed)
	require.Len(t, report.Posted, 1)
	assert.Equal(t, "\n• new", report.Posted[0].Event.Bullets)
	assert.Equal(t, "\n• new", poster.Messages[0].Blocks[1].Text.Text)
}

func TestPublish_TopConceptsByRelevance(t *testing.T) {
	poster := &MockPoster{}
	p, s := newPublisher(t, poster)
	require.NoError(t, s.Concepts.Put(model.Concept{URI: "a", Name: "Low", RelevanceScore: 10, Category: model.CategoryOther}))
	require.NoError(t, s.Concepts.Put(model.Concept{URI: "b", Name: "Approved", Approved: true, Category: model.CategoryOrganization}))
	require.NoError(t, s.Concepts.Put(model.Concept{URI: "c", Name: "High", RelevanceScore: 80, Category: model.CategoryCondition}))

	se := scored("e1", 100)
	se.Event.Concepts = []string{"a", "b", "c", "unknown"}
	_, err := p.Publish(context.Background(), se)
	require.NoError(t, err)

	require.Len(t, poster.Messages, 1)
	assert.Equal(t, "*Concepts:* Approved, High, Low", poster.Messages[0].Blocks[2].Text.Text)
}

func TestSlackWebhook(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		if got.Text == "fail" {
			http.Error(w, "invalid_blocks", http.StatusBadRequest)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	hook := NewSlackWebhook(config.SlackConfig{WebhookURL: srv.URL, TimeoutSeconds: 5})
	require.NoError(t, hook.Post(context.Background(), Message{Text: "hello", Blocks: []Block{{Type: "section", Text: mrkdwn("hi")}}}))
	assert.Equal(t, "hi", got.Blocks[0].Text.Text)

	err := hook.Post(context.Background(), Message{Text: "fail"})
	assert.ErrorIs(t, err, ErrDelivery)
	assert.Contains(t, err.Error(), "invalid_blocks")
}
