package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/ydnscraper/article"
)

func sampleArticle(url string) *article.Article {
	return &article.Article{
		URL:                         url,
		Date:                        article.Text("2024-01-05 00:00:00"),
		ArticleType:                 article.TypeRegular,
		Title:                       article.Text("A <b>bold</b> title"),
		EstimatedReadingTimeMinutes: article.Int(4),
		Content:                     article.Text("One.\nTwo."),
	}
}

// TestJSONLines_OneObjectPerLine verifies each article is a single line
func TestJSONLines_OneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLines(&buf)

	require.NoError(t, s.Write(context.Background(), sampleArticle("https://yaledailynews.com/blog/a/")))
	require.NoError(t, s.Write(context.Background(), sampleArticle("https://yaledailynews.com/blog/b/")))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "https://yaledailynews.com/blog/a/", decoded["url"])
	assert.Nil(t, decoded["subtitle"], "missing subtitle should be JSON null")
	assert.Contains(t, decoded, "subtitle")
	assert.Contains(t, lines[0], "<b>bold</b>", "HTML should not be escaped")
}

// TestJSONLines_CanceledContext verifies writes honor cancellation
func TestJSONLines_CanceledContext(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLines(&buf)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Write(ctx, sampleArticle("https://yaledailynews.com/blog/a/"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}

// TestCreateJSONLines verifies file output
func TestCreateJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")

	s, err := CreateJSONLines(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), sampleArticle("https://yaledailynews.com/blog/a/")))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
}

type failingSink struct {
	writes int
}

func (f *failingSink) Write(context.Context, *article.Article) error {
	f.writes++
	return errors.New("disk full")
}

func (f *failingSink) Close() error { return nil }

// TestMulti_DeliversToAll verifies one failing sink does not block others
func TestMulti_DeliversToAll(t *testing.T) {
	var buf bytes.Buffer
	failing := &failingSink{}
	m := Multi(failing, NewJSONLines(&buf), Discard{})

	err := m.Write(context.Background(), sampleArticle("https://yaledailynews.com/blog/a/"))

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, failing.writes)
	assert.NotEmpty(t, buf.String())
	assert.NoError(t, m.Close())
}
