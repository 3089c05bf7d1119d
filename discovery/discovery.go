// Package discovery decides which sitemap and feed entries lead to article
// pages.
package discovery

import "strings"

// DefaultSitemapURL is the sitemap index of yaledailynews.com.
const DefaultSitemapURL = "https://yaledailynews.com/sitemap_index.xml"

// Rules selects which nested sitemaps are followed and which page URLs are
// handed to the extractor. Each list matches by substring; an empty list
// matches everything.
type Rules struct {
	SitemapFollow []string `yaml:"sitemap_follow" json:"sitemap_follow"`
	PageRules     []string `yaml:"page_rules" json:"page_rules"`
}

// DefaultRules follows only post sitemaps and keeps /blog/ pages.
func DefaultRules() Rules {
	return Rules{
		SitemapFollow: []string{"/post-sitemap"},
		PageRules:     []string{"/blog/"},
	}
}

// FollowSitemap reports whether a <sitemapindex> entry should be fetched.
func (r Rules) FollowSitemap(loc string) bool {
	return matchAny(r.SitemapFollow, loc)
}

// IsPage reports whether a <urlset> entry is an article page.
func (r Rules) IsPage(loc string) bool {
	return matchAny(r.PageRules, loc)
}

func matchAny(patterns []string, s string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
