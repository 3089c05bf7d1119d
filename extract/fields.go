package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/pevans/ydnscraper/article"
	"github.com/pevans/ydnscraper/scraper"
)

// firstText returns the raw text of the first element matching selector, or
// nil when nothing matches.
func firstText(doc *goquery.Document, selector string) *string {
	if selector == "" {
		return nil
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	text := sel.Text()
	return &text
}

func readTitle(doc *goquery.Document, layout scraper.Layout) *string {
	if !layout.JoinTitle {
		raw := firstText(doc, layout.TitleSelector)
		if raw == nil {
			return nil
		}
		return article.Text(Normalize(*raw))
	}

	var fragments []string
	doc.Find(layout.TitleSelector).Each(func(_ int, s *goquery.Selection) {
		if frag := Normalize(s.Text()); frag != "" {
			fragments = append(fragments, frag)
		}
	})
	return article.Text(strings.Join(fragments, " "))
}

func readSubtitle(doc *goquery.Document, layout scraper.Layout) *string {
	raw := firstText(doc, layout.SubtitleSelector)
	if raw == nil {
		return nil
	}
	return article.Text(Normalize(*raw))
}

func readContent(doc *goquery.Document, layout scraper.Layout) *string {
	sel := doc.Find(layout.ContentSelector)
	if layout.SingleParagraph {
		sel = sel.First()
	}

	var paragraphs []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if p := Normalize(s.Text()); p != "" {
			paragraphs = append(paragraphs, p)
		}
	})
	return article.Text(strings.Join(paragraphs, "\n"))
}

func readDate(doc *goquery.Document, layout scraper.Layout) (*string, error) {
	raw := firstText(doc, layout.DateSelector)
	if raw == nil {
		return nil, nil
	}

	label := *raw
	if layout.DateStrip != "" {
		label = strings.ReplaceAll(label, layout.DateStrip, " ")
	}
	label = strings.TrimSpace(label)
	if layout.DatePrefix != "" {
		label = strings.TrimPrefix(label, layout.DatePrefix)
	}
	if strings.TrimSpace(label) == "" {
		return nil, nil
	}

	date, err := ParseDate(label)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

var (
	leadingWeekday = regexp.MustCompile(`(?i)^(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+`)
	leadingClock   = regexp.MustCompile(`(?i)^(\d{1,2}:\d{2}(?::\d{2})?(?:\s*[ap]\.?m\.?)?)\s*,?\s+(.+)$`)
)

// fallbackLayouts are tried, in order, when dateparse rejects a label.
// Labels are upper-cased first so am/pm matches PM.
var fallbackLayouts = []string{
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 3:04:05 PM",
	"January 2, 2006 3:04 PM",
	"January 2, 2006 3:04:05 PM",
	"Jan 2, 2006, 3:04 PM",
	"January 2, 2006, 3:04 PM",
	"Jan 2, 2006 15:04",
	"January 2, 2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate parses a free-text date label and formats it as
// article.DateLayout. Labels without a zone are read as UTC. A leading
// weekday is dropped and a leading clock ("11:10 pm, Sep 20, 2011") is moved
// after the date.
func ParseDate(label string) (string, error) {
	label = reshapeDate(label)
	t, err := dateparse.ParseIn(label, time.UTC)
	if err == nil {
		return t.Format(article.DateLayout), nil
	}

	upper := strings.ToUpper(strings.ReplaceAll(label, ".", ""))
	for _, layout := range fallbackLayouts {
		if ft, ferr := time.ParseInLocation(layout, upper, time.UTC); ferr == nil {
			return ft.Format(article.DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q: %v", ErrMalformedDate, label, err)
}

// reshapeDate collapses whitespace and rewrites weekday- and time-first
// labels into the date-first order dateparse understands.
func reshapeDate(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	label = leadingWeekday.ReplaceAllString(label, "")
	if m := leadingClock.FindStringSubmatch(label); m != nil {
		clock := strings.ReplaceAll(m[1], ".", "")
		label = strings.TrimSpace(leadingWeekday.ReplaceAllString(m[2], "")) + " " + clock
	}
	return label
}

// readReadingTime scans <meta name="prefix..."> entries in document order
// and parses the leading token of the first content value containing token.
func readReadingTime(doc *goquery.Document, prefix, token string) (*int, error) {
	var hint string
	found := false
	doc.Find(fmt.Sprintf("meta[name^=%q]", prefix)).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content, ok := s.Attr("content")
		if ok && strings.Contains(content, token) {
			hint = content
			found = true
			return false
		}
		return true
	})
	if !found {
		return nil, nil
	}

	fields := strings.Fields(hint)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedReadingTime, hint)
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedReadingTime, hint)
	}
	return article.Int(minutes), nil
}
