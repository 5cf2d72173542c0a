package model

import "time"

// Post is a published event. The snapshot is kept whole but only its uri is
// ever consulted again.
type Post struct {
	ID       string    `json:"id"`
	PostedAt time.Time `json:"posted_at"`
	Score    float64   `json:"score"`
	Event    Event     `json:"event"`
}

// ScoredEvent pairs an event with its composite score.
type ScoredEvent struct {
	Event Event   `json:"event"`
	Score float64 `json:"score"`
}

// Profile holds survey answers for one concept.
type Profile struct {
	Name      string         `json:"name"`
	URI       string         `json:"uri,omitempty"`
	Questions []Question     `json:"questions,omitempty"`
	Answers   map[string]any `json:"answers"`
}

type Question struct {
	Text     string `json:"text"`
	Property string `json:"property"`
	Type     string `json:"type"`
}
