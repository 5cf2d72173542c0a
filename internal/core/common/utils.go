package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BulletMarker is the token prompts ask the model to start each bullet with.
const BulletMarker = "<bullet>"

// ParseJSON cleans and unmarshals a model response into a type T.
// It tolerates surrounding markdown fences or prose around the object.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	start := strings.IndexByte(response, '{')
	if start == -1 {
		return zero, fmt.Errorf("no JSON object found in response (missing '{')")
	}
	end := strings.LastIndexByte(response, '}')
	if end < start {
		return zero, fmt.Errorf("no JSON object found in response (missing '}')")
	}
	jsonStr := response[start : end+1]

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, jsonStr)
	}

	return result, nil
}

// FormatBullets turns "<bullet> a <bullet> b" into "\n• a\n• b". Newlines the
// model added on its own are dropped first.
func FormatBullets(text string) string {
	text = strings.ReplaceAll(text, "\n", "")
	text = strings.ReplaceAll(text, BulletMarker+" ", "\n• ")
	text = strings.ReplaceAll(text, BulletMarker, "\n• ")
	return text
}

// Truncate cuts s to at most n runes, appending "..." when it had to cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
