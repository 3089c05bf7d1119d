package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pevans/ydnscraper/api"
	"github.com/pevans/ydnscraper/config"
	"github.com/pevans/ydnscraper/crawler"
	"github.com/pevans/ydnscraper/extract"
	"github.com/pevans/ydnscraper/sink"
)

// loadSettings reads the config file named by --config and layers opts over
// it.
func loadSettings(opts config.CrawlOptions) (*config.Settings, error) {
	file, err := config.LoadConfigFile(globals.Config)
	if err != nil {
		return nil, err
	}
	if file == nil && globals.Config != "" {
		return nil, fmt.Errorf("config file not found: %s", globals.Config)
	}

	settings, err := config.Resolve(file, opts)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

func newExtractor(settings *config.Settings) (*extract.Extractor, error) {
	return extract.New(settings.Scraper,
		extract.WithPolicy(settings.Policy),
		extract.WithLogger(log.Logger),
	)
}

type crawlCommand struct {
	config.CrawlOptions

	Output   string `long:"output" short:"o" env:"YDN_OUTPUT" default:"-" description:"JSON Lines output file, - for stdout, empty to disable"`
	Database string `long:"db" env:"YDN_DB" description:"Also store articles in this SQLite database"`
}

func (c *crawlCommand) Execute(_ []string) error {
	settings, err := loadSettings(c.CrawlOptions)
	if err != nil {
		return err
	}
	ex, err := newExtractor(settings)
	if err != nil {
		return err
	}

	out, err := c.openSinks()
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close output")
		}
	}()

	engine, err := crawler.New(settings.Crawler, ex, out, log.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	stats, err := engine.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Warn().Str("run_id", stats.RunID).Int("records", stats.Records).Msg("crawl interrupted")
		return nil
	}
	return err
}

func (c *crawlCommand) openSinks() (sink.Sink, error) {
	var sinks []sink.Sink

	switch c.Output {
	case "":
	case "-":
		sinks = append(sinks, sink.NewJSONLines(os.Stdout))
	default:
		jl, err := sink.CreateJSONLines(c.Output)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, jl)
	}

	if c.Database != "" {
		store, err := sink.OpenSQLite(c.Database)
		if err != nil {
			sink.Multi(sinks...).Close()
			return nil, err
		}
		log.Info().Str("db", c.Database).Msg("storing articles")
		sinks = append(sinks, store)
	}

	if len(sinks) == 0 {
		return nil, errors.New("nothing to write to: set --output or --db")
	}
	return sink.Multi(sinks...), nil
}

type extractCommand struct {
	config.CrawlOptions

	File    string `long:"file" description:"Read HTML from this file instead of fetching"`
	PageURL string `long:"url" description:"URL the --file page was served from"`

	Args struct {
		URLs []string `positional-arg-name:"url"`
	} `positional-args:"yes"`
}

func (c *extractCommand) Execute(_ []string) error {
	settings, err := loadSettings(c.CrawlOptions)
	if err != nil {
		return err
	}
	ex, err := newExtractor(settings)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", c.File, err)
		}
		defer f.Close()

		a, err := ex.ExtractHTML(c.PageURL, f)
		if err != nil || a == nil {
			return err
		}
		return enc.Encode(a)
	}

	if len(c.Args.URLs) == 0 {
		return errors.New("give at least one URL or --file")
	}

	engine, err := crawler.New(settings.Crawler, ex, nil, log.Logger)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	var failed int
	for _, u := range c.Args.URLs {
		a, err := engine.ExtractURL(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("url", u).Msg("extraction failed")
			failed++
			continue
		}
		if a == nil {
			continue
		}
		if err := enc.Encode(a); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pages failed", failed, len(c.Args.URLs))
	}
	return nil
}

type serveCommand struct {
	Database string `long:"db" env:"YDN_DB" default:"articles.db" description:"SQLite database written by crawl --db"`
	Addr     string `long:"addr" env:"YDN_ADDR" default:"localhost:8080" description:"Listen address"`
}

func (c *serveCommand) Execute(_ []string) error {
	store, err := sink.OpenSQLite(c.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:    c.Addr,
		Handler: api.NewServer(store, log.Logger).SetupRouter(),
	}

	ctx, cancel := signalContext()
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://"+c.Addr+"/api/v1/articles").Msg("starting article API")
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
