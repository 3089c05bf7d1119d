package article

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestText_WhitespaceBecomesNil verifies empty and blank strings are nulled
func TestText_WhitespaceBecomesNil(t *testing.T) {
	for _, s := range []string{"", " ", "  \t\n "} {
		assert.Nil(t, Text(s), "%q should become nil", s)
	}
}

// TestText_Trims verifies surrounding whitespace is removed
func TestText_Trims(t *testing.T) {
	got := Text("  Yale wins  ")

	require.NotNil(t, got)
	assert.Equal(t, "Yale wins", *got)
}

// TestParseType verifies case-insensitive type parsing
func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"Regular", TypeRegular},
		{"feature", TypeFeature},
		{" YTV ", TypeYTV},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseType("podcast")
	assert.Error(t, err)
}

// TestArticle_JSONNulls verifies absent fields serialize as null, not ""
func TestArticle_JSONNulls(t *testing.T) {
	a := Article{
		URL:         "https://yaledailynews.com/blog/2024/01/05/story/",
		ArticleType: TypeRegular,
		Title:       Text("Story"),
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "Regular", raw["article_type"])
	assert.Equal(t, "Story", raw["title"])
	for _, key := range []string{"date", "subtitle", "estimated_reading_time_minutes", "content"} {
		v, ok := raw[key]
		assert.True(t, ok, "%s should be present", key)
		assert.Nil(t, v, "%s should be null", key)
	}
}

// TestValue verifies nil-safe dereference
func TestValue(t *testing.T) {
	assert.Equal(t, "", Value(nil))
	assert.Equal(t, "x", Value(Text("x")))
}
