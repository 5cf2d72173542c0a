package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	type rating struct {
		Relevance float64 `json:"relevance"`
	}

	got, err := ParseJSON[rating]("```json\n{\"relevance\": 72}\n```")
	require.NoError(t, err)
	assert.Equal(t, 72.0, got.Relevance)

	_, err = ParseJSON[rating]("I cannot rate this article.")
	assert.Error(t, err)

	_, err = ParseJSON[rating]("} nope {")
	assert.Error(t, err)

	_, err = ParseJSON[rating](`{"relevance": "high"}`)
	assert.Error(t, err)
}

func TestFormatBullets(t *testing.T) {
	in := "<bullet> Vaccine approved\n<bullet> Rollout starts in May <bullet>Covers children"
	assert.Equal(t, "\n• Vaccine approved\n• Rollout starts in May \n• Covers children", FormatBullets(in))
	assert.Equal(t, "plain", FormatBullets("plain"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}
