package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pevans/ydnscraper/config"
)

var globals config.GlobalOptions

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	parser := flags.NewParser(&globals, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if err := setupLogging(globals); err != nil {
			return err
		}
		return cmd.Execute(args)
	}

	mustAddCommand(parser, "crawl",
		"Crawl the sitemap and extract articles",
		"Walks the configured sitemaps (and feeds), extracts every recognized article page, and writes one JSON object per article.",
		&crawlCommand{})
	mustAddCommand(parser, "extract",
		"Extract articles from single pages",
		"Fetches each URL given as an argument, or reads --file, and prints the extracted article as JSON.",
		&extractCommand{})
	mustAddCommand(parser, "serve",
		"Serve stored articles over HTTP",
		"Starts a read-only JSON API over a SQLite database written by crawl --db.",
		&serveCommand{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Stdout.WriteString(flagsErr.Message + "\n")
			return
		}
		if errors.As(err, &flagsErr) {
			os.Stderr.WriteString(flagsErr.Message + "\n")
			os.Exit(2)
		}
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func mustAddCommand(p *flags.Parser, name, short, long string, data any) {
	if _, err := p.AddCommand(name, short, long, data); err != nil {
		log.Fatal().Err(err).Str("command", name).Msg("failed to register command")
	}
}

func setupLogging(opts config.GlobalOptions) error {
	level, err := config.ParseLogLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	if opts.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. A second
// signal exits immediately.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}
		select {
		case <-sigChan:
			log.Warn().Msg("second signal, forcing exit")
			os.Exit(130)
		case <-time.After(60 * time.Second):
			log.Warn().Msg("shutdown timeout exceeded, forcing exit")
			os.Exit(1)
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
