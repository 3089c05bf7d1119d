package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedUserAgent identifies feed requests.
const FeedUserAgent = "ydnscraper/1.0 (+https://yaledailynews.com)"

// FeedTimeout bounds a single feed fetch.
var FeedTimeout = 30 * time.Second

// FetchFeed fetches and parses an RSS or Atom feed. The gofeed library
// detects the format.
func FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = FeedUserAgent
	fp.Client = &http.Client{Timeout: FeedTimeout}
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// FeedLinks returns the article links of a feed that pass rules.IsPage, in
// feed order and without duplicates.
func FeedLinks(ctx context.Context, feedURL string, rules Rules) ([]string, error) {
	feed, err := FetchFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return ItemLinks(feed, rules), nil
}

// ItemLinks extracts page links from an already parsed feed.
func ItemLinks(feed *gofeed.Feed, rules Rules) []string {
	seen := make(map[string]bool, len(feed.Items))
	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" || seen[link] || !rules.IsPage(link) {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}
	return links
}
