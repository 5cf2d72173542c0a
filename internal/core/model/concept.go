package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type ConceptCategory string

const (
	CategoryCondition    ConceptCategory = "condition"
	CategoryTreatment    ConceptCategory = "treatment"
	CategoryOrganization ConceptCategory = "organization"
	CategoryOther        ConceptCategory = "other"
)

// ConceptCategories lists the classification buckets in display order.
var ConceptCategories = []ConceptCategory{
	CategoryCondition,
	CategoryTreatment,
	CategoryOrganization,
	CategoryOther,
}

func (c ConceptCategory) Valid() bool {
	for _, known := range ConceptCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Concept is a tracked real-world entity: an organization, a condition or a
// treatment. Approved concepts widen the search scope and score 100.
type Concept struct {
	URI            string          `json:"uri"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Category       ConceptCategory `json:"category,omitempty"`
	RelevanceScore float64         `json:"relevance_score"`
	Approved       bool            `json:"approved"`
	Events         []string        `json:"events"`
	WikiExcerpt    string          `json:"wiki_excerpt,omitempty"`
	Type           string          `json:"type,omitempty"`
}

// Classified reports whether the concept carries one of the known
// categories. Anything else goes through model classification.
func (c Concept) Classified() bool {
	return c.Category.Valid()
}

// EffectiveRelevance is the value the scorer averages.
func (c Concept) EffectiveRelevance() float64 {
	if c.Approved {
		return 100
	}
	return c.RelevanceScore
}

// AddEvent appends an event uri unless present. It reports whether the set
// changed.
func (c *Concept) AddEvent(eventURI string) bool {
	for _, e := range c.Events {
		if e == eventURI {
			return false
		}
	}
	c.Events = append(c.Events, eventURI)
	return true
}

// Merge folds incoming into c. Fields already set on c win, the approved flag
// is never lost and the longer description is kept.
func (c *Concept) Merge(incoming Concept) {
	if c.Name == "" {
		c.Name = incoming.Name
	}
	if len(incoming.Description) > len(c.Description) {
		c.Description = incoming.Description
	}
	if c.Category == "" {
		c.Category = incoming.Category
	}
	if c.RelevanceScore == 0 {
		c.RelevanceScore = incoming.RelevanceScore
	}
	c.Approved = c.Approved || incoming.Approved
	if c.WikiExcerpt == "" {
		c.WikiExcerpt = incoming.WikiExcerpt
	}
	if c.Type == "" {
		c.Type = incoming.Type
	}
	for _, e := range incoming.Events {
		c.AddEvent(e)
	}
}

// ConceptRef is how upstream records point at a concept: either a bare uri or
// a full object. Resolve it to a Concept before storing anything.
type ConceptRef struct {
	URI     string
	Concept *Concept
}

func (r ConceptRef) Partial() Concept {
	if r.Concept != nil {
		return *r.Concept
	}
	return Concept{URI: r.URI}
}

func (r ConceptRef) MarshalJSON() ([]byte, error) {
	if r.Concept != nil {
		return json.Marshal(r.Concept)
	}
	return json.Marshal(r.URI)
}

type upstreamConcept struct {
	URI         string            `json:"uri"`
	Name        string            `json:"name"`
	Label       map[string]string `json:"label"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Category    ConceptCategory   `json:"category"`
	Score       float64           `json:"relevance_score"`
	Approved    bool              `json:"approved"`
}

func (r *ConceptRef) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err == nil {
		r.URI = uri
		r.Concept = nil
		return nil
	}

	var raw upstreamConcept
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("concept ref is neither a uri nor an object: %w", err)
	}
	if raw.URI == "" {
		return fmt.Errorf("concept ref object without uri")
	}

	name := raw.Name
	if name == "" {
		name = pickLabel(raw.Label)
	}
	r.URI = raw.URI
	r.Concept = &Concept{
		URI:            raw.URI,
		Name:           name,
		Description:    raw.Description,
		Category:       raw.Category,
		RelevanceScore: raw.Score,
		Approved:       raw.Approved,
		Type:           raw.Type,
	}
	return nil
}

// pickLabel prefers the English label, then the first label by language code.
func pickLabel(labels map[string]string) string {
	if v := labels[LangEnglish]; v != "" {
		return v
	}
	langs := make([]string, 0, len(labels))
	for lang := range labels {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if v := strings.TrimSpace(labels[lang]); v != "" {
			return v
		}
	}
	return ""
}
