package publish

import (
	"fmt"
	"strings"

	"github.com/agenthands/beacon/internal/core/common"
	"github.com/agenthands/beacon/internal/core/model"
)

const (
	// maxConcepts is how many concept names a message lists.
	maxConcepts = 5
	// maxSectionChars is Slack's limit for a section text.
	maxSectionChars = 3000
)

// Message is a Slack Block Kit payload.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

type Block struct {
	Type      string     `json:"type"`
	Text      *Text      `json:"text,omitempty"`
	Accessory *Accessory `json:"accessory,omitempty"`
	Elements  []Element  `json:"elements,omitempty"`
}

type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Accessory struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
	AltText  string `json:"alt_text"`
}

type Element struct {
	Type  string `json:"type"`
	Text  *Text  `json:"text,omitempty"`
	Style string `json:"style,omitempty"`
	URL   string `json:"url,omitempty"`
}

func mrkdwn(s string) *Text {
	return &Text{Type: "mrkdwn", Text: s}
}

// Render lays out an event: title and date, bullets, concept names and a
// "Read more" button. conceptNames are expected in descending relevance.
func Render(e model.Event, conceptNames []string) Message {
	title := e.EnglishTitle()
	heading := fmt.Sprintf("*%s*\n%s", title, e.EventDate)
	if e.Source == model.SourceTrials {
		heading = fmt.Sprintf("*New trial:* %s\n%s", title, e.EventDate)
	}

	header := Block{Type: "section", Text: mrkdwn(heading)}
	if img := e.Image(); img != "" {
		header.Accessory = &Accessory{Type: "image", ImageURL: img, AltText: title}
	}
	blocks := []Block{header}

	body := strings.TrimSpace(e.Bullets)
	if body == "" {
		body = e.EnglishSummary()
	}
	if body != "" {
		blocks = append(blocks, Block{Type: "section", Text: mrkdwn(common.Truncate(body, maxSectionChars))})
	}

	if len(conceptNames) > maxConcepts {
		conceptNames = conceptNames[:maxConcepts]
	}
	if len(conceptNames) > 0 {
		blocks = append(blocks, Block{Type: "section", Text: mrkdwn("*Concepts:* " + strings.Join(conceptNames, ", "))})
	}

	if link := e.Link(); link != "" {
		blocks = append(blocks, Block{
			Type: "actions",
			Elements: []Element{{
				Type:  "button",
				Text:  &Text{Type: "plain_text", Text: "Read more"},
				Style: "primary",
				URL:   link,
			}},
		})
	}

	return Message{Text: title, Blocks: blocks}
}
