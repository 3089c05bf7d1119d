// Package sink delivers extracted articles to their destinations.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pevans/ydnscraper/article"
)

var ErrNotFound = errors.New("article not found")

// Sink receives each extracted article. Implementations must be safe for
// concurrent use.
type Sink interface {
	Write(ctx context.Context, a *article.Article) error
	Close() error
}

// JSONLines writes one JSON object per line.
type JSONLines struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLines writes to w. Close does not close w.
func NewJSONLines(w io.Writer) *JSONLines {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLines{enc: enc}
}

// CreateJSONLines creates (or truncates) the file at path.
func CreateJSONLines(path string) (*JSONLines, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	j := NewJSONLines(f)
	j.closer = f
	return j, nil
}

func (j *JSONLines) Write(ctx context.Context, a *article.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(a); err != nil {
		return fmt.Errorf("failed to write article: %w", err)
	}
	return nil
}

func (j *JSONLines) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}

// RunTagger is implemented by sinks that record which crawl run wrote an
// article.
type RunTagger interface {
	SetRunID(id string)
}

type multi []Sink

// Multi fans every article out to all sinks. A failure in one sink does not
// stop delivery to the others; the errors are joined.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Write(ctx context.Context, a *article.Article) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) SetRunID(id string) {
	for _, s := range m {
		if t, ok := s.(RunTagger); ok {
			t.SetRunID(id)
		}
	}
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard accepts and drops every article.
type Discard struct{}

func (Discard) Write(context.Context, *article.Article) error { return nil }
func (Discard) Close() error                                  { return nil }
