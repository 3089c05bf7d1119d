package scraper

import (
	"errors"
	"fmt"

	"github.com/pevans/ydnscraper/article"
)

// Default reading-time metadata settings.
const (
	DefaultReadingTimeMetaPrefix = "twitter:data"
	DefaultReadingTimeToken      = "minute"
)

var (
	ErrNoLayouts       = errors.New("at least one layout is required")
	ErrLayoutType      = errors.New("layout type must be Regular, Feature or YTV")
	ErrLayoutMarker    = errors.New("layout needs a host_marker or a marker")
	ErrLayoutSelectors = errors.New("layout needs title and content selectors")
)

// ScraperConfig defines how pages of the site are classified and which
// selectors are read for each layout. Layouts are evaluated in order and the
// first one whose markers match the page wins.
type ScraperConfig struct {
	Layouts []Layout `yaml:"layouts" json:"layouts"`

	// Pages carry reading-time hints in <meta name="PREFIX..."> entries; the
	// first content value containing Token is used.
	ReadingTimeMetaPrefix string `yaml:"reading_time_meta_prefix" json:"reading_time_meta_prefix"`
	ReadingTimeToken      string `yaml:"reading_time_token" json:"reading_time_token"`
}

// Layout describes one page template the site has used.
type Layout struct {
	Type article.Type `yaml:"type" json:"type"`

	// Classification. HostMarker is checked against the URL host, Marker is
	// a selector that must match at least one element.
	HostMarker string `yaml:"host_marker,omitempty" json:"host_marker,omitempty"`
	Marker     string `yaml:"marker,omitempty" json:"marker,omitempty"`

	DateSelector string `yaml:"date_selector" json:"date_selector"`
	DatePrefix   string `yaml:"date_prefix,omitempty" json:"date_prefix,omitempty"` // removed from the front of the label
	DateStrip    string `yaml:"date_strip,omitempty" json:"date_strip,omitempty"`   // removed everywhere in the label

	TitleSelector string `yaml:"title_selector" json:"title_selector"`
	// JoinTitle concatenates every match of TitleSelector with spaces instead
	// of reading the first one.
	JoinTitle bool `yaml:"join_title,omitempty" json:"join_title,omitempty"`

	SubtitleSelector string `yaml:"subtitle_selector,omitempty" json:"subtitle_selector,omitempty"`

	ContentSelector string `yaml:"content_selector" json:"content_selector"`
	// SingleParagraph reads only the first match of ContentSelector.
	SingleParagraph bool `yaml:"single_paragraph,omitempty" json:"single_paragraph,omitempty"`
}

// DefaultConfig returns the layouts of yaledailynews.com, in match order:
// features subdomain, YTV video blog, then the standard article header.
func DefaultConfig() *ScraperConfig {
	return &ScraperConfig{
		Layouts: []Layout{
			{
				Type:            article.TypeFeature,
				HostMarker:      "features.",
				DateSelector:    ".publish-date",
				DatePrefix:      "Published on",
				TitleSelector:   "h1.feature-title span",
				JoinTitle:       true,
				ContentSelector: "div.feature-content p",
			},
			{
				Type:            article.TypeYTV,
				Marker:          "div.ytv-header",
				DateSelector:    "date",
				DateStrip:       "|",
				TitleSelector:   "div.ytv-header > h1",
				ContentSelector: "div.ytv-blurb p",
				SingleParagraph: true,
			},
			{
				Type:             article.TypeRegular,
				Marker:           "div.article-header",
				DateSelector:     "date",
				TitleSelector:    "div.article-header > h1",
				SubtitleSelector: "div.article-header > p.subtitle",
				ContentSelector:  "section.article-text > p",
			},
		},
		ReadingTimeMetaPrefix: DefaultReadingTimeMetaPrefix,
		ReadingTimeToken:      DefaultReadingTimeToken,
	}
}

// Validate checks that every layout can be classified and extracted.
func (c *ScraperConfig) Validate() error {
	if len(c.Layouts) == 0 {
		return ErrNoLayouts
	}
	for i, l := range c.Layouts {
		if _, err := article.ParseType(string(l.Type)); err != nil {
			return fmt.Errorf("layout %d: %w", i, ErrLayoutType)
		}
		if l.HostMarker == "" && l.Marker == "" {
			return fmt.Errorf("layout %d (%s): %w", i, l.Type, ErrLayoutMarker)
		}
		if l.TitleSelector == "" || l.ContentSelector == "" {
			return fmt.Errorf("layout %d (%s): %w", i, l.Type, ErrLayoutSelectors)
		}
	}
	return nil
}

// WithDefaults fills empty reading-time settings from DefaultConfig.
func (c *ScraperConfig) WithDefaults() *ScraperConfig {
	out := *c
	out.Layouts = append([]Layout(nil), c.Layouts...)
	if out.ReadingTimeMetaPrefix == "" {
		out.ReadingTimeMetaPrefix = DefaultReadingTimeMetaPrefix
	}
	if out.ReadingTimeToken == "" {
		out.ReadingTimeToken = DefaultReadingTimeToken
	}
	return &out
}
