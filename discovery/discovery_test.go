package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Yale Daily News</title>
  <link>https://yaledailynews.com</link>
  <item>
    <title>First</title>
    <link>https://yaledailynews.com/blog/2024/01/05/first/</link>
  </item>
  <item>
    <title>Category page</title>
    <link>https://yaledailynews.com/category/news/</link>
  </item>
  <item>
    <title>First again</title>
    <link>https://yaledailynews.com/blog/2024/01/05/first/</link>
  </item>
  <item>
    <title>Second</title>
    <link>https://yaledailynews.com/blog/2024/01/06/second/</link>
  </item>
</channel>
</rss>`

// TestRules_Defaults verifies the default sitemap and page rules
func TestRules_Defaults(t *testing.T) {
	r := DefaultRules()

	assert.True(t, r.FollowSitemap("https://yaledailynews.com/post-sitemap3.xml"))
	assert.False(t, r.FollowSitemap("https://yaledailynews.com/page-sitemap.xml"))
	assert.True(t, r.IsPage("https://yaledailynews.com/blog/2012/09/17/story/"))
	assert.False(t, r.IsPage("https://yaledailynews.com/about/"))
}

// TestRules_EmptyMatchesAll verifies empty rule lists accept every entry
func TestRules_EmptyMatchesAll(t *testing.T) {
	var r Rules

	assert.True(t, r.FollowSitemap("https://example.com/any.xml"))
	assert.True(t, r.IsPage("https://example.com/anything"))
}

// TestItemLinks_FiltersAndDeduplicates verifies feed links are filtered
func TestItemLinks_FiltersAndDeduplicates(t *testing.T) {
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		{Link: " https://yaledailynews.com/blog/a/ "},
		{Link: ""},
		{Link: "https://yaledailynews.com/blog/a/"},
		{Link: "https://yaledailynews.com/tag/x/"},
	}}

	links := ItemLinks(feed, DefaultRules())

	assert.Equal(t, []string{"https://yaledailynews.com/blog/a/"}, links)
}

// TestFeedLinks verifies links are read from a served RSS feed
func TestFeedLinks(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSS))
	}))
	defer server.Close()

	links, err := FeedLinks(context.Background(), server.URL, DefaultRules())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://yaledailynews.com/blog/2024/01/05/first/",
		"https://yaledailynews.com/blog/2024/01/06/second/",
	}, links)
	assert.Equal(t, FeedUserAgent, userAgent)
}

// TestFeedLinks_BadFeed verifies parse failures are reported
func TestFeedLinks_BadFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>not a feed</body></html>"))
	}))
	defer server.Close()

	_, err := FeedLinks(context.Background(), server.URL, DefaultRules())

	assert.Error(t, err)
}

// TestFeedLinks_Timeout verifies a stalled feed host does not block forever
func TestFeedLinks_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	defer func(old time.Duration) { FeedTimeout = old }(FeedTimeout)
	FeedTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := FeedLinks(context.Background(), server.URL, DefaultRules())

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
