package model

import "time"

// Cursor tracks the contiguous date range already fetched for one concept.
// Dates are stored as YYYY-MM-DD.
type Cursor struct {
	LastSearchDate string `json:"last_search_date"`
	DataSince      string `json:"data_since"`
}

func (c Cursor) LastSearch() (time.Time, error) {
	return time.Parse(DateLayout, c.LastSearchDate)
}

func (c Cursor) Since() (time.Time, error) {
	return time.Parse(DateLayout, c.DataSince)
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}
