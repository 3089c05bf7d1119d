// Package extract classifies fetched article pages by layout and extracts an
// article.Article from them. Extraction is a pure function of the page URL
// and document; an Extractor holds only immutable configuration and is safe
// for concurrent use.
package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pevans/ydnscraper/article"
	"github.com/pevans/ydnscraper/scraper"
)

// Policy decides what happens when a field is present but cannot be parsed.
type Policy int

const (
	// PolicyFail drops the page with a *FieldError.
	PolicyFail Policy = iota
	// PolicyNull logs a warning and leaves the field null.
	PolicyNull
)

// ParsePolicy converts "fail" or "null" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return PolicyFail, nil
	case "null":
		return PolicyNull, nil
	}
	return PolicyFail, fmt.Errorf("unknown malformed-field policy: %q", s)
}

func (p Policy) String() string {
	if p == PolicyNull {
		return "null"
	}
	return "fail"
}

// Extractor turns recognized pages into articles.
type Extractor struct {
	config *scraper.ScraperConfig
	policy Policy
	logger zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPolicy sets the malformed-field policy. The default is PolicyFail.
func WithPolicy(p Policy) Option {
	return func(e *Extractor) { e.policy = p }
}

// WithLogger sets the logger used for skip and warning lines.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New creates an Extractor for the given layouts. A nil config uses
// scraper.DefaultConfig.
func New(cfg *scraper.ScraperConfig, opts ...Option) (*Extractor, error) {
	if cfg == nil {
		cfg = scraper.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scraper config: %w", err)
	}

	e := &Extractor{
		config: cfg.WithDefaults(),
		policy: PolicyFail,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Classify returns the first layout matching the page. Host markers are
// checked against the URL before any document lookup.
func (e *Extractor) Classify(pageURL string, doc *goquery.Document) (scraper.Layout, bool) {
	host := hostOf(pageURL)
	for _, l := range e.config.Layouts {
		if l.HostMarker != "" && strings.Contains(host, strings.ToLower(l.HostMarker)) {
			return l, true
		}
		if l.Marker != "" && doc.Find(l.Marker).Length() > 0 {
			return l, true
		}
	}
	return scraper.Layout{}, false
}

// Extract returns the article for a recognized page, (nil, nil) for an
// unrecognized page, or a *FieldError when a field cannot be parsed under
// PolicyFail. Missing elements never fail a page; their fields are null.
func (e *Extractor) Extract(pageURL string, doc *goquery.Document) (*article.Article, error) {
	layout, ok := e.Classify(pageURL, doc)
	if !ok {
		e.logger.Info().Str("url", pageURL).Msg("skipping unrecognized page")
		return nil, nil
	}

	a := &article.Article{
		URL:         pageURL,
		ArticleType: layout.Type,
		Title:       readTitle(doc, layout),
		Subtitle:    readSubtitle(doc, layout),
		Content:     readContent(doc, layout),
	}

	date, err := readDate(doc, layout)
	if err != nil {
		if err := e.handle(pageURL, "date", err); err != nil {
			return nil, err
		}
	}
	a.Date = date

	minutes, err := readReadingTime(doc, e.config.ReadingTimeMetaPrefix, e.config.ReadingTimeToken)
	if err != nil {
		if err := e.handle(pageURL, "estimated_reading_time_minutes", err); err != nil {
			return nil, err
		}
	}
	a.EstimatedReadingTimeMinutes = minutes

	return a, nil
}

// ExtractHTML parses an HTML body and extracts it.
func (e *Extractor) ExtractHTML(pageURL string, r io.Reader) (*article.Article, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return e.Extract(pageURL, doc)
}

// handle applies the malformed-field policy. A nil return means the field
// stays null and extraction continues.
func (e *Extractor) handle(pageURL, field string, err error) error {
	if e.policy == PolicyNull {
		e.logger.Warn().Err(err).Str("url", pageURL).Str("field", field).Msg("malformed field, leaving null")
		return nil
	}
	return &FieldError{URL: pageURL, Field: field, Err: err}
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
