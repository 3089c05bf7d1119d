package crawler

import (
	"errors"
	"time"

	"github.com/pevans/ydnscraper/discovery"
)

var (
	ErrNoSeeds         = errors.New("at least one sitemap or feed URL is required")
	ErrBadParallelism  = errors.New("parallelism must be at least 1")
	ErrNegativeSetting = errors.New("delays, timeouts, retries and limits must not be negative")
)

// DefaultUserAgent is sent when user-agent rotation is disabled.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// Config holds the fetch policy for one crawl. It is built once and never
// changed while the engine runs.
type Config struct {
	SitemapURLs    []string
	FeedURLs       []string
	AllowedDomains []string
	Rules          discovery.Rules

	// Politeness
	Parallelism    int
	Delay          time.Duration
	RandomDelay    time.Duration
	RequestTimeout time.Duration

	// Retries apply to transport errors and the listed status codes.
	RetryTimes     int
	RetryHTTPCodes []int

	// MaxErrors stops the crawl once this many errors have been counted.
	// Zero disables the breaker.
	MaxErrors int

	RandomUserAgent bool
	UserAgent       string
	Headers         map[string]string

	// MaxPages caps the number of article pages requested. Zero means no
	// limit.
	MaxPages int
}

// DefaultConfig returns the fetch policy for yaledailynews.com: one request
// at a time, 200ms apart, one retry, and a stop on the first error.
func DefaultConfig() Config {
	return Config{
		SitemapURLs:    []string{discovery.DefaultSitemapURL},
		AllowedDomains: []string{"yaledailynews.com", "features.yaledailynews.com"},
		Rules:          discovery.DefaultRules(),
		Parallelism:    1,
		Delay:          200 * time.Millisecond,
		RequestTimeout: 600 * time.Second,
		RetryTimes:     1,
		RetryHTTPCodes: []int{500, 502, 503, 504, 400, 403, 404, 408, 429},
		MaxErrors:      1,

		RandomUserAgent: true,
		UserAgent:       DefaultUserAgent,
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.5",
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
		},
	}
}

// Validate checks that the config can drive a crawl.
func (c Config) Validate() error {
	if len(c.SitemapURLs) == 0 && len(c.FeedURLs) == 0 {
		return ErrNoSeeds
	}
	if c.Parallelism < 1 {
		return ErrBadParallelism
	}
	if c.Delay < 0 || c.RandomDelay < 0 || c.RequestTimeout < 0 ||
		c.RetryTimes < 0 || c.MaxErrors < 0 || c.MaxPages < 0 {
		return ErrNegativeSetting
	}
	return nil
}

func (c Config) retryable(statusCode int) bool {
	// Transport failures carry no status code.
	if statusCode == 0 {
		return true
	}
	for _, code := range c.RetryHTTPCodes {
		if code == statusCode {
			return true
		}
	}
	return false
}
