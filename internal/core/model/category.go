package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is a taxonomy node such as "dmoz/Health/Child_Health". The
// hierarchy is encoded in the uri path.
type Category struct {
	URI         string   `json:"uri"`
	Description string   `json:"description,omitempty"`
	Approved    bool     `json:"approved"`
	ParentURI   string   `json:"parentUri,omitempty"`
	Events      []string `json:"events"`
}

// ParentOf returns the uri without its last path segment, or "" for roots.
func ParentOf(uri string) string {
	i := strings.LastIndex(uri, "/")
	if i <= 0 {
		return ""
	}
	return uri[:i]
}

func (c *Category) AddEvent(eventURI string) bool {
	for _, e := range c.Events {
		if e == eventURI {
			return false
		}
	}
	c.Events = append(c.Events, eventURI)
	return true
}

// CategoryRef accepts either "dmoz/Health" or {"uri": "dmoz/Health", "wgt": 80}.
type CategoryRef struct {
	URI    string
	Label  string
	Weight float64
}

func (r CategoryRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.URI)
}

func (r *CategoryRef) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err == nil {
		*r = CategoryRef{URI: uri}
		return nil
	}
	var raw struct {
		URI    string  `json:"uri"`
		Label  string  `json:"label"`
		Weight float64 `json:"wgt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("category ref is neither a uri nor an object: %w", err)
	}
	if raw.URI == "" {
		return fmt.Errorf("category ref object without uri")
	}
	*r = CategoryRef{URI: raw.URI, Label: raw.Label, Weight: raw.Weight}
	return nil
}
