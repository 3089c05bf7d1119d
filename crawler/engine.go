// Package crawler walks the site's sitemaps with colly, fetches article
// pages, and hands them to an extractor and a sink.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pevans/ydnscraper/article"
	"github.com/pevans/ydnscraper/discovery"
	"github.com/pevans/ydnscraper/extract"
	"github.com/pevans/ydnscraper/sink"
)

// ErrCircuitOpen is returned by Run when the error limit stopped the crawl.
var ErrCircuitOpen = errors.New("crawl stopped: error limit reached")

var errStopped = errors.New("crawl stopped")

// Extractor turns a fetched page into an article. A nil article with a nil
// error means the page was not recognized.
type Extractor interface {
	Extract(pageURL string, doc *goquery.Document) (*article.Article, error)
}

// Stats summarizes one run.
type Stats struct {
	RunID   string `json:"run_id"`
	Pages   int    `json:"pages"`
	Records int    `json:"records"`
	Skipped int    `json:"skipped"`
	Errors  int    `json:"errors"`
}

// Engine runs crawls with a fixed configuration.
type Engine struct {
	config    Config
	extractor Extractor
	sink      sink.Sink
	logger    zerolog.Logger
}

// New creates an engine. The sink is not closed by the engine.
func New(cfg Config, extractor Extractor, s sink.Sink, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crawler config: %w", err)
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if s == nil {
		s = sink.Discard{}
	}
	return &Engine{
		config:    cfg,
		extractor: extractor,
		sink:      s,
		logger:    logger,
	}, nil
}

type requestKind string

const (
	kindSitemap requestKind = "sitemap"
	kindPage    requestKind = "page"

	ctxKind    = "kind"
	ctxRetries = "retries"
)

// run holds the state of a single crawl.
type run struct {
	*Engine
	ctx       context.Context
	id        string
	logger    zerolog.Logger
	collector *colly.Collector

	pages     atomic.Int64
	records   atomic.Int64
	skipped   atomic.Int64
	failures  atomic.Int64
	requested atomic.Int64
	tripped   atomic.Bool

	mu      sync.Mutex
	lastErr error
}

// Run crawls every configured sitemap and feed until all discovered pages
// are processed, the error limit is reached, or ctx is cancelled. Requests
// already in flight when the crawl stops are allowed to finish.
func (e *Engine) Run(ctx context.Context) (Stats, error) {
	r := &run{
		Engine: e,
		ctx:    ctx,
		id:     uuid.NewString(),
	}
	r.logger = e.logger.With().Str("run_id", r.id).Logger()

	if t, ok := e.sink.(sink.RunTagger); ok {
		t.SetRunID(r.id)
	}

	c, err := e.newCollector(true, r.stopped)
	if err != nil {
		return r.stats(), err
	}
	r.collector = c

	c.OnRequest(r.onRequest)
	c.OnError(r.onError)
	c.OnXML("//sitemapindex/sitemap/loc", r.onSitemapEntry)
	c.OnXML("//urlset/url/loc", r.onPageEntry)
	c.OnResponse(r.onResponse)

	r.logger.Info().
		Strs("sitemaps", e.config.SitemapURLs).
		Strs("feeds", e.config.FeedURLs).
		Msg("crawl starting")

	for _, u := range e.config.SitemapURLs {
		r.visit(u, kindSitemap)
	}
	for _, feedURL := range e.config.FeedURLs {
		if r.stopped() {
			break
		}
		links, err := discovery.FeedLinks(ctx, feedURL, e.config.Rules)
		if err != nil {
			r.fail(feedURL, "", err)
			continue
		}
		r.logger.Info().Str("feed", feedURL).Int("links", len(links)).Msg("seeding from feed")
		for _, link := range links {
			r.visit(link, kindPage)
		}
	}

	c.Wait()

	stats := r.stats()
	r.logger.Info().
		Int("pages", stats.Pages).
		Int("records", stats.Records).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("crawl finished")

	if r.tripped.Load() {
		r.mu.Lock()
		last := r.lastErr
		r.mu.Unlock()
		return stats, fmt.Errorf("%w (%d errors, last: %v)", ErrCircuitOpen, stats.Errors, last)
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// ExtractURL fetches one page with the engine's fetch policy and extracts
// it. A nil article with a nil error means the page was not recognized.
func (e *Engine) ExtractURL(ctx context.Context, pageURL string) (*article.Article, error) {
	c, err := e.newCollector(false, func() bool { return ctx.Err() != nil })
	if err != nil {
		return nil, err
	}

	var (
		result  *article.Article
		failure error
	)
	c.OnRequest(func(req *colly.Request) {
		if ctx.Err() != nil {
			req.Abort()
			return
		}
		e.setHeaders(req)
	})
	c.OnError(func(resp *colly.Response, err error) {
		if errors.Is(err, errStopped) {
			return
		}
		if ctx.Err() == nil && e.retry(resp) {
			return
		}
		failure = fmt.Errorf("fetch failed: %w", err)
	})
	c.OnResponse(func(resp *colly.Response) {
		result, failure = e.extractBody(pageURL, resp.Body)
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, failure
}

// newCollector builds a collector with the engine's fetch policy. Once
// stopped reports true, requests still waiting for a slot fail with
// errStopped instead of reaching the network.
func (e *Engine) newCollector(async bool, stopped func() bool) (*colly.Collector, error) {
	opts := []colly.CollectorOption{colly.Async(async)}
	if e.config.UserAgent != "" {
		opts = append(opts, colly.UserAgent(e.config.UserAgent))
	}
	if len(e.config.AllowedDomains) > 0 {
		opts = append(opts, colly.AllowedDomains(e.config.AllowedDomains...))
	}
	c := colly.NewCollector(opts...)

	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: e.config.Parallelism,
		Delay:       e.config.Delay,
		RandomDelay: e.config.RandomDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set request limits: %w", err)
	}
	c.WithTransport(&gateTransport{
		next:    http.DefaultTransport,
		stopped: stopped,
	})
	if e.config.RequestTimeout > 0 {
		c.SetRequestTimeout(e.config.RequestTimeout)
	}
	if e.config.RandomUserAgent {
		extensions.RandomUserAgent(c)
	}
	return c, nil
}

// gateTransport refuses round trips once the crawl has stopped. colly waits
// for its parallelism slot before the round trip, so queued requests are
// cut off here.
type gateTransport struct {
	next    http.RoundTripper
	stopped func() bool
}

func (g *gateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if g.stopped() {
		return nil, errStopped
	}
	return g.next.RoundTrip(req)
}

func (e *Engine) setHeaders(req *colly.Request) {
	for k, v := range e.config.Headers {
		req.Headers.Set(k, v)
	}
}

// retry re-issues a failed request when its failure is retryable and the
// request has attempts left. The attempt count lives in the request context,
// which colly reuses across retries.
func (e *Engine) retry(resp *colly.Response) bool {
	if resp.Request == nil || !e.config.retryable(resp.StatusCode) {
		return false
	}
	n, _ := resp.Ctx.GetAny(ctxRetries).(int)
	if n >= e.config.RetryTimes {
		return false
	}
	resp.Ctx.Put(ctxRetries, n+1)
	return resp.Request.Retry() == nil
}

func (e *Engine) extractBody(pageURL string, body []byte) (*article.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return e.extractor.Extract(pageURL, doc)
}

func (r *run) stopped() bool {
	return r.tripped.Load() || r.ctx.Err() != nil
}

func (r *run) visit(u string, kind requestKind) {
	if r.stopped() {
		return
	}
	// Page slots are reserved up front and handed back when colly refuses
	// the URL, so duplicates do not count toward MaxPages.
	limited := kind == kindPage && r.config.MaxPages > 0
	if limited && r.requested.Add(1) > int64(r.config.MaxPages) {
		r.requested.Add(-1)
		return
	}

	ctx := colly.NewContext()
	ctx.Put(ctxKind, string(kind))
	err := r.collector.Request(http.MethodGet, u, nil, ctx, nil)
	if err != nil && limited {
		r.requested.Add(-1)
	}
	switch {
	case err == nil:
	case errors.Is(err, colly.ErrAlreadyVisited), errors.Is(err, colly.ErrForbiddenDomain):
		r.logger.Debug().Err(err).Str("url", u).Msg("not visiting")
	default:
		r.fail(u, "", fmt.Errorf("failed to queue request: %w", err))
	}
}

func (r *run) onRequest(req *colly.Request) {
	if r.stopped() {
		req.Abort()
		return
	}
	r.setHeaders(req)
	r.logger.Debug().Str("url", req.URL.String()).Msg("requesting")
}

func (r *run) onError(resp *colly.Response, err error) {
	if errors.Is(err, errStopped) {
		return
	}
	u := resp.Request.URL.String()
	if !r.stopped() && r.retry(resp) {
		r.logger.Warn().Err(err).Str("url", u).Int("status", resp.StatusCode).Msg("retrying")
		return
	}
	r.fail(u, "", fmt.Errorf("fetch failed: %w", err))
}

func (r *run) onSitemapEntry(e *colly.XMLElement) {
	loc := strings.TrimSpace(e.Text)
	if loc != "" && r.config.Rules.FollowSitemap(loc) {
		r.visit(loc, kindSitemap)
	}
}

func (r *run) onPageEntry(e *colly.XMLElement) {
	loc := strings.TrimSpace(e.Text)
	if loc != "" && r.config.Rules.IsPage(loc) {
		r.visit(loc, kindPage)
	}
}

func (r *run) onResponse(resp *colly.Response) {
	if resp.Ctx.Get(ctxKind) != string(kindPage) {
		return
	}
	pageURL := resp.Request.URL.String()
	r.pages.Add(1)

	a, err := r.extractBody(pageURL, resp.Body)
	if err != nil {
		var fieldErr *extract.FieldError
		field := ""
		if errors.As(err, &fieldErr) {
			field = fieldErr.Field
		}
		r.fail(pageURL, field, err)
		return
	}
	if a == nil {
		r.skipped.Add(1)
		return
	}

	if err := r.sink.Write(r.ctx, a); err != nil {
		r.fail(pageURL, "", fmt.Errorf("failed to write article: %w", err))
		return
	}
	r.records.Add(1)
}

// fail logs and counts one error, and opens the breaker once the count
// reaches MaxErrors.
func (r *run) fail(u, field string, err error) {
	n := r.failures.Add(1)

	ev := r.logger.Error().Err(err).Str("url", u)
	if field != "" {
		ev = ev.Str("field", field)
	}
	ev.Msg("page failed")

	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()

	if limit := r.config.MaxErrors; limit > 0 && n >= int64(limit) && r.tripped.CompareAndSwap(false, true) {
		r.logger.Error().Int64("errors", n).Int("max_errors", limit).Msg("error limit reached, stopping crawl")
	}
}

func (r *run) stats() Stats {
	return Stats{
		RunID:   r.id,
		Pages:   int(r.pages.Load()),
		Records: int(r.records.Load()),
		Skipped: int(r.skipped.Load()),
		Errors:  int(r.failures.Load()),
	}
}
