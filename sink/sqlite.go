package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pevans/ydnscraper/article"
)

// SQLiteStore keeps the latest version of every article, keyed by URL.
type SQLiteStore struct {
	db *sql.DB

	mu    sync.RWMutex
	runID string
}

// StoredArticle is an article plus the crawl that last wrote it.
type StoredArticle struct {
	article.Article
	RunID     string    `json:"run_id"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// ArticleFilter narrows List. Since and Until compare against the article
// date in article.DateLayout and are inclusive; articles without a date are
// excluded when either bound is set.
type ArticleFilter struct {
	Type   *article.Type
	Since  string
	Until  string
	Limit  int
	Offset int
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		url TEXT PRIMARY KEY,
		date TEXT,
		article_type TEXT NOT NULL,
		title TEXT,
		subtitle TEXT,
		estimated_reading_time_minutes INTEGER,
		content TEXT,
		run_id TEXT NOT NULL DEFAULT '',
		scraped_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_articles_date ON articles(date);
	CREATE INDEX IF NOT EXISTS idx_articles_type ON articles(article_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SetRunID tags subsequent writes with the given crawl run.
func (s *SQLiteStore) SetRunID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = id
}

func (s *SQLiteStore) currentRunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// Write inserts the article or replaces the stored version with the same URL.
func (s *SQLiteStore) Write(ctx context.Context, a *article.Article) error {
	query := `
		INSERT INTO articles (
			url, date, article_type, title, subtitle,
			estimated_reading_time_minutes, content, run_id, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			date = excluded.date,
			article_type = excluded.article_type,
			title = excluded.title,
			subtitle = excluded.subtitle,
			estimated_reading_time_minutes = excluded.estimated_reading_time_minutes,
			content = excluded.content,
			run_id = excluded.run_id,
			scraped_at = excluded.scraped_at
	`

	_, err := s.db.ExecContext(ctx, query,
		a.URL,
		a.Date,
		string(a.ArticleType),
		a.Title,
		a.Subtitle,
		a.EstimatedReadingTimeMinutes,
		a.Content,
		s.currentRunID(),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to store article: %w", err)
	}
	return nil
}

// Get returns the stored article for url, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, url string) (*StoredArticle, error) {
	row := s.db.QueryRowContext(ctx, selectArticles+" WHERE url = ?", url)
	stored, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article: %w", err)
	}
	return stored, nil
}

// List returns one page of articles, newest first, and the number of
// articles matching the filter.
func (s *SQLiteStore) List(ctx context.Context, filter ArticleFilter) ([]StoredArticle, int, error) {
	var whereClauses []string
	var args []any

	if filter.Type != nil {
		whereClauses = append(whereClauses, "article_type = ?")
		args = append(args, string(*filter.Type))
	}
	if filter.Since != "" {
		whereClauses = append(whereClauses, "date >= ?")
		args = append(args, filter.Since)
	}
	if filter.Until != "" {
		whereClauses = append(whereClauses, "date <= ?")
		args = append(args, filter.Until)
	}

	where := ""
	if len(whereClauses) > 0 {
		where = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	query := selectArticles + where + " ORDER BY date DESC, url ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	articles := []StoredArticle{}
	for rows.Next() {
		stored, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *stored)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read articles: %w", err)
	}

	return articles, total, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectArticles = `
	SELECT url, date, article_type, title, subtitle,
	       estimated_reading_time_minutes, content, run_id, scraped_at
	FROM articles`

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (*StoredArticle, error) {
	var url, articleType, runID, scrapedAt string
	var date, title, subtitle, content sql.NullString
	var minutes sql.NullInt64

	if err := row.Scan(
		&url, &date, &articleType, &title, &subtitle,
		&minutes, &content, &runID, &scrapedAt,
	); err != nil {
		return nil, err
	}

	stored := &StoredArticle{
		Article: article.Article{
			URL:         url,
			ArticleType: article.Type(articleType),
			Date:        nullString(date),
			Title:       nullString(title),
			Subtitle:    nullString(subtitle),
			Content:     nullString(content),
		},
		RunID:     runID,
		ScrapedAt: parseTime(scrapedAt),
	}
	if minutes.Valid {
		stored.EstimatedReadingTimeMinutes = article.Int(int(minutes.Int64))
	}
	return stored, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func formatTime(t time.Time) string {
	// Strip monotonic clock for consistent storage and comparisons
	return t.UTC().Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
