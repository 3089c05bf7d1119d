// Package config resolves command-line flags, environment variables and the
// optional YAML config file into the settings of a crawl.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/pevans/ydnscraper/crawler"
	"github.com/pevans/ydnscraper/extract"
	"github.com/pevans/ydnscraper/scraper"
)

var (
	ErrInvalidSeedURL  = errors.New("sitemap and feed URLs must be absolute http(s) URLs")
	ErrInvalidLogLevel = errors.New("log level must be one of trace, debug, info, warn, error")
	ErrInvalidPolicy   = errors.New("on-malformed must be fail or null")
)

// GlobalOptions are the flags shared by every command.
type GlobalOptions struct {
	Config    string `long:"config" env:"YDN_CONFIG" description:"YAML config file (default ~/.ydnscraper/config.yaml)"`
	LogLevel  string `long:"log-level" env:"YDN_LOG_LEVEL" default:"info" description:"Log level (trace, debug, info, warn, error)"`
	LogFormat string `long:"log-format" env:"YDN_LOG_FORMAT" default:"console" choice:"console" choice:"json" description:"Log output format"`
}

// CrawlOptions override the fetch policy. Pointer fields are nil when the
// flag and its environment variable are both absent, so file values and
// defaults show through.
type CrawlOptions struct {
	Sitemaps          []string       `long:"sitemap" env:"YDN_SITEMAPS" env-delim:"," description:"Sitemap URL to start from (repeatable)"`
	Feeds             []string       `long:"feed" env:"YDN_FEEDS" env-delim:"," description:"RSS feed URL to seed pages from (repeatable)"`
	Parallelism       *int           `long:"parallelism" env:"YDN_PARALLELISM" description:"Concurrent requests (default 1)"`
	Delay             *time.Duration `long:"delay" env:"YDN_DELAY" description:"Delay between requests (default 200ms)"`
	RandomDelay       *time.Duration `long:"random-delay" env:"YDN_RANDOM_DELAY" description:"Extra random delay per request"`
	Timeout           *time.Duration `long:"timeout" env:"YDN_TIMEOUT" description:"Request timeout (default 600s)"`
	RetryTimes        *int           `long:"retry-times" env:"YDN_RETRY_TIMES" description:"Retries per request (default 1)"`
	MaxErrors         *int           `long:"max-errors" env:"YDN_MAX_ERRORS" description:"Stop after this many errors, 0 to never stop (default 1)"`
	MaxPages          *int           `long:"max-pages" env:"YDN_MAX_PAGES" description:"Stop after this many article pages, 0 for no limit"`
	NoRandomUserAgent bool           `long:"no-random-user-agent" env:"YDN_NO_RANDOM_USER_AGENT" description:"Send a fixed user agent"`
	OnMalformed       string         `long:"on-malformed" env:"YDN_ON_MALFORMED" description:"What to do with unparseable dates and reading times: fail or null"`
}

// Settings is everything a crawl or extraction needs.
type Settings struct {
	Crawler crawler.Config
	Scraper *scraper.ScraperConfig
	Policy  extract.Policy
}

// Resolve layers the config file and then the options over the defaults.
// file may be nil.
func Resolve(file *FileConfig, opts CrawlOptions) (*Settings, error) {
	s := &Settings{
		Crawler: crawler.DefaultConfig(),
		Scraper: scraper.DefaultConfig(),
	}
	policy := ""

	if file != nil {
		applyFile(&s.Crawler, file.Crawl)
		if file.Scraper != nil && len(file.Scraper.Layouts) > 0 {
			s.Scraper = file.Scraper.WithDefaults()
		}
		policy = file.Crawl.OnMalformed
	}

	applyOptions(&s.Crawler, opts)
	if opts.OnMalformed != "" {
		policy = opts.OnMalformed
	}

	p, err := extract.ParsePolicy(policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	s.Policy = p

	return s, nil
}

func applyFile(c *crawler.Config, f CrawlFile) {
	if len(f.SitemapURLs) > 0 {
		c.SitemapURLs = f.SitemapURLs
	}
	if len(f.FeedURLs) > 0 {
		c.FeedURLs = f.FeedURLs
	}
	if len(f.AllowedDomains) > 0 {
		c.AllowedDomains = f.AllowedDomains
	}
	if f.Rules != nil {
		c.Rules = *f.Rules
	}
	setIf(&c.Parallelism, f.Parallelism)
	setIf(&c.Delay, f.Delay)
	setIf(&c.RandomDelay, f.RandomDelay)
	setIf(&c.RequestTimeout, f.RequestTimeout)
	setIf(&c.RetryTimes, f.RetryTimes)
	if len(f.RetryHTTPCodes) > 0 {
		c.RetryHTTPCodes = f.RetryHTTPCodes
	}
	setIf(&c.MaxErrors, f.MaxErrors)
	setIf(&c.MaxPages, f.MaxPages)
	setIf(&c.RandomUserAgent, f.RandomUserAgent)
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	for k, v := range f.Headers {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[k] = v
	}
}

func applyOptions(c *crawler.Config, o CrawlOptions) {
	if len(o.Sitemaps) > 0 {
		c.SitemapURLs = o.Sitemaps
	}
	if len(o.Feeds) > 0 {
		c.FeedURLs = o.Feeds
	}
	setIf(&c.Parallelism, o.Parallelism)
	setIf(&c.Delay, o.Delay)
	setIf(&c.RandomDelay, o.RandomDelay)
	setIf(&c.RequestTimeout, o.Timeout)
	setIf(&c.RetryTimes, o.RetryTimes)
	setIf(&c.MaxErrors, o.MaxErrors)
	setIf(&c.MaxPages, o.MaxPages)
	if o.NoRandomUserAgent {
		c.RandomUserAgent = false
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks resolved settings.
func Validate(s *Settings) error {
	if err := s.Crawler.Validate(); err != nil {
		return err
	}
	for _, raw := range append(append([]string(nil), s.Crawler.SitemapURLs...), s.Crawler.FeedURLs...) {
		if err := validateSeedURL(raw); err != nil {
			return err
		}
	}
	return s.Scraper.Validate()
}

func validateSeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeedURL, raw)
	}
	return nil
}

// ParseLogLevel converts a level name to a zerolog level.
func ParseLogLevel(s string) (zerolog.Level, error) {
	switch s {
	case "trace", "debug", "info", "warn", "error":
		level, err := zerolog.ParseLevel(s)
		if err == nil {
			return level, nil
		}
	}
	return zerolog.NoLevel, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
}
