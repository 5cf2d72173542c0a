package model

import (
	"sort"
	"time"
)

const (
	LangEnglish = "eng"
	DateLayout  = "2006-01-02"

	SourceNews   = "news"
	SourceTrials = "trials"
)

type Article struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	URL   string `json:"url,omitempty"`
	Image string `json:"image,omitempty"`
	Date  string `json:"date,omitempty"`
}

type Story struct {
	URI           string   `json:"uri,omitempty"`
	Title         string   `json:"title,omitempty"`
	MedoidArticle *Article `json:"medoidArticle,omitempty"`
}

// Event is the stored, normalized form of a news event or clinical trial.
type Event struct {
	URI        string            `json:"uri"`
	Title      map[string]string `json:"title"`
	Summary    map[string]string `json:"summary"`
	EventDate  string            `json:"eventDate"`
	Concepts   []string          `json:"concepts"`
	Categories []string          `json:"categories"`
	Stories    []Story           `json:"stories,omitempty"`
	Images     []string          `json:"images,omitempty"`
	Source     string            `json:"source,omitempty"`
	URL        string            `json:"url,omitempty"`

	ConceptRelevanceScore *float64 `json:"concept_relevance_score,omitempty"`
	AIRelevanceScore      *float64 `json:"ai_relevance_score,omitempty"`
	DominantConcept       string   `json:"dominant_concept,omitempty"`
	Bullets               string   `json:"bullets,omitempty"`
}

// RawEvent is an event as returned by a search collaborator, before concept
// and category references are resolved.
type RawEvent struct {
	URI        string            `json:"uri"`
	Title      map[string]string `json:"title"`
	Summary    map[string]string `json:"summary"`
	EventDate  string            `json:"eventDate"`
	Concepts   []ConceptRef      `json:"concepts"`
	Categories []CategoryRef     `json:"categories"`
	Stories    []Story           `json:"stories,omitempty"`
	Images     []string          `json:"images,omitempty"`
	Source     string            `json:"source,omitempty"`
	URL        string            `json:"url,omitempty"`
}

// Event converts the raw record without any concept or category links.
func (r RawEvent) Event() Event {
	return Event{
		URI:       r.URI,
		Title:     copyText(r.Title),
		Summary:   copyText(r.Summary),
		EventDate: r.EventDate,
		Stories:   r.Stories,
		Images:    r.Images,
		Source:    r.Source,
		URL:       r.URL,
	}
}

func (e Event) Date() (time.Time, error) {
	return time.Parse(DateLayout, e.EventDate)
}

func (e Event) EnglishTitle() string {
	if t := e.Title[LangEnglish]; t != "" {
		return t
	}
	return pickLabel(e.Title)
}

func (e Event) EnglishSummary() string {
	if s := e.Summary[LangEnglish]; s != "" {
		return s
	}
	return pickLabel(e.Summary)
}

// RepresentativeArticle is the medoid article of the first story that has
// one.
func (e Event) RepresentativeArticle() *Article {
	for _, s := range e.Stories {
		if s.MedoidArticle != nil {
			return s.MedoidArticle
		}
	}
	return nil
}

// ArticleBody is the text the relevance rubric is applied to.
func (e Event) ArticleBody() string {
	if a := e.RepresentativeArticle(); a != nil && a.Body != "" {
		return a.Body
	}
	if e.Source == SourceTrials {
		return e.EnglishSummary()
	}
	return ""
}

// Link is where "Read more" points.
func (e Event) Link() string {
	if a := e.RepresentativeArticle(); a != nil && a.URL != "" {
		return a.URL
	}
	return e.URL
}

func (e Event) Image() string {
	if a := e.RepresentativeArticle(); a != nil && a.Image != "" {
		return a.Image
	}
	if len(e.Images) > 0 {
		return e.Images[0]
	}
	return ""
}

func (e Event) HasConcept(uri string) bool {
	for _, c := range e.Concepts {
		if c == uri {
			return true
		}
	}
	return false
}

func (e Event) HasCategory(uri string) bool {
	for _, c := range e.Categories {
		if c == uri {
			return true
		}
	}
	return false
}

// MergeFrom keeps immutable fields from the first write, unions the concept
// and category sets and takes scores and bullets from o when o has them.
func (e *Event) MergeFrom(o Event) {
	if e.Title == nil {
		e.Title = map[string]string{}
	}
	for lang, t := range o.Title {
		if _, ok := e.Title[lang]; !ok {
			e.Title[lang] = t
		}
	}
	if e.Summary == nil {
		e.Summary = map[string]string{}
	}
	for lang, s := range o.Summary {
		if _, ok := e.Summary[lang]; !ok {
			e.Summary[lang] = s
		}
	}
	if e.EventDate == "" {
		e.EventDate = o.EventDate
	}
	if len(e.Stories) == 0 {
		e.Stories = o.Stories
	}
	if len(e.Images) == 0 {
		e.Images = o.Images
	}
	if e.Source == "" {
		e.Source = o.Source
	}
	if e.URL == "" {
		e.URL = o.URL
	}
	for _, c := range o.Concepts {
		if !e.HasConcept(c) {
			e.Concepts = append(e.Concepts, c)
		}
	}
	for _, c := range o.Categories {
		if !e.HasCategory(c) {
			e.Categories = append(e.Categories, c)
		}
	}
	if o.ConceptRelevanceScore != nil {
		e.ConceptRelevanceScore = o.ConceptRelevanceScore
	}
	if o.AIRelevanceScore != nil {
		e.AIRelevanceScore = o.AIRelevanceScore
	}
	if o.DominantConcept != "" {
		e.DominantConcept = o.DominantConcept
	}
	if o.Bullets != "" {
		e.Bullets = o.Bullets
	}
}

// FirstLanguage returns the lowest language code that carries text.
func FirstLanguage(text map[string]string) (string, bool) {
	langs := make([]string, 0, len(text))
	for lang, v := range text {
		if v != "" {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		return "", false
	}
	sort.Strings(langs)
	return langs[0], true
}

func copyText(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
