package article

import (
	"fmt"
	"strings"
)

// DateLayout is the timestamp format used for the Date field.
const DateLayout = "2006-01-02 15:04:05"

// Type identifies which page layout an article was extracted from.
type Type string

const (
	TypeRegular Type = "Regular"
	TypeFeature Type = "Feature"
	TypeYTV     Type = "YTV"
)

// ParseType converts a string to a Type. Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regular":
		return TypeRegular, nil
	case "feature":
		return TypeFeature, nil
	case "ytv":
		return TypeYTV, nil
	}
	return "", fmt.Errorf("unknown article type: %q", s)
}

// Article is the record produced for every recognized page. Nullable fields
// are pointers and serialize as JSON null when absent.
type Article struct {
	URL                         string  `json:"url"`
	Date                        *string `json:"date"`
	ArticleType                 Type    `json:"article_type"`
	Title                       *string `json:"title"`
	Subtitle                    *string `json:"subtitle"`
	EstimatedReadingTimeMinutes *int    `json:"estimated_reading_time_minutes"`
	Content                     *string `json:"content"`
}

// Text returns a pointer to the trimmed string, or nil when the trimmed
// string is empty. Every nullable text field is assigned through Text so an
// Article never carries an empty string.
func Text(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Int returns a pointer to n.
func Int(n int) *int {
	return &n
}

// Value dereferences a nullable field, returning "" for nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
