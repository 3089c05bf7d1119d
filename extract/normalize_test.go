package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims", "  Hello  ", "Hello"},
		{"collapses whitespace", "one\n\t two   three", "one two three"},
		{"accents", "Café naïve résumé", "Cafe naive resume"},
		{"curly quotes", "Yale’s “best”", `Yale's "best"`},
		{"non-breaking space", "New\u00a0Haven", "New Haven"},
		{"whitespace only", " \n\t ", ""},
		{"ascii unchanged", "Elm City, 2024.", "Elm City, 2024."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := "  Déjà   vu at Sterling’s  "
	once := Normalize(in)
	assert.Equal(t, once, Normalize(once))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Jan 5, 2024", "2024-01-05 00:00:00"},
		{"  May 8, 2009   5:57:51 PM ", "2009-05-08 17:57:51"},
		{"May 17, 2012 10:10:09", "2012-05-17 10:10:09"},
		{"Sep 20, 2011 11:10 pm", "2011-09-20 23:10:00"},
		{"11:10 pm Sep 20, 2011", "2011-09-20 23:10:00"},
		{"12:22 am, Nov 26, 2023", "2023-11-26 00:22:00"},
		{"9:05 a.m., Nov 26, 2023", "2023-11-26 09:05:00"},
		{"Monday, September 17, 2012", "2012-09-17 00:00:00"},
		{"Tue, May 17, 2012 10:10:09", "2012-05-17 10:10:09"},
		{"Tuesday 11:10 pm, Sep 20, 2011", "2011-09-20 23:10:00"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseDate(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, label := range []string{"29-06-2016", "SeptemberRR 7th, 1970"} {
		_, err := ParseDate(label)
		assert.ErrorIs(t, err, ErrMalformedDate, label)
	}
}

func TestReshapeDate(t *testing.T) {
	assert.Equal(t, "Sep 20, 2011 11:10 pm", reshapeDate("11:10 pm   Sep 20, 2011"))
	assert.Equal(t, "September 17, 2012", reshapeDate("Monday, September 17, 2012"))
	assert.Equal(t, "Nov 26, 2023 9:05 am", reshapeDate("9:05 a.m., Nov 26, 2023"))
	assert.Equal(t, "May 8, 2009 5:57:51 PM", reshapeDate("May 8, 2009 5:57:51 PM"))
}
