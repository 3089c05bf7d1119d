package sink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/ydnscraper/article"
)

// Test helper: create a test article store
func createTestStore(t *testing.T) *SQLiteStore {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := OpenSQLite(dbPath)
	require.NoError(t, err, "should create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func datedArticle(url string, typ article.Type, date string) *article.Article {
	return &article.Article{
		URL:         url,
		ArticleType: typ,
		Date:        article.Text(date),
		Title:       article.Text("Title " + url),
	}
}

// TestSQLiteStore_WriteAndGet verifies nullable fields round trip
func TestSQLiteStore_WriteAndGet(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	store.SetRunID("run-1")

	a := sampleArticle("https://yaledailynews.com/blog/a/")
	require.NoError(t, store.Write(ctx, a))

	got, err := store.Get(ctx, a.URL)
	require.NoError(t, err)
	assert.Equal(t, *a, got.Article)
	assert.Nil(t, got.Subtitle)
	assert.Equal(t, "run-1", got.RunID)
	assert.False(t, got.ScrapedAt.IsZero())
}

// TestSQLiteStore_Upsert verifies a second write replaces the first
func TestSQLiteStore_Upsert(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	url := "https://yaledailynews.com/blog/a/"

	store.SetRunID("run-1")
	require.NoError(t, store.Write(ctx, sampleArticle(url)))

	updated := sampleArticle(url)
	updated.Title = article.Text("Corrected title")
	updated.EstimatedReadingTimeMinutes = nil
	store.SetRunID("run-2")
	require.NoError(t, store.Write(ctx, updated))

	got, err := store.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "Corrected title", article.Value(got.Title))
	assert.Nil(t, got.EstimatedReadingTimeMinutes)
	assert.Equal(t, "run-2", got.RunID)

	_, total, err := store.List(ctx, ArticleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

// TestSQLiteStore_GetNotFound verifies the sentinel error
func TestSQLiteStore_GetNotFound(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Get(context.Background(), "https://yaledailynews.com/blog/missing/")

	assert.ErrorIs(t, err, ErrNotFound)
}

// TestSQLiteStore_ListFilters verifies type, date range, and paging
func TestSQLiteStore_ListFilters(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, datedArticle("https://yaledailynews.com/blog/1/", article.TypeRegular, "2024-01-01 09:00:00")))
	require.NoError(t, store.Write(ctx, datedArticle("https://yaledailynews.com/blog/2/", article.TypeYTV, "2024-01-02 09:00:00")))
	require.NoError(t, store.Write(ctx, datedArticle("https://yaledailynews.com/blog/3/", article.TypeRegular, "2024-01-03 09:00:00")))
	require.NoError(t, store.Write(ctx, datedArticle("https://yaledailynews.com/blog/4/", article.TypeRegular, "")))

	all, total, err := store.List(ctx, ArticleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, all, 4)
	assert.Equal(t, "https://yaledailynews.com/blog/3/", all[0].URL, "newest first")
	assert.Nil(t, all[3].Date, "undated articles last")

	regular := article.TypeRegular
	byType, total, err := store.List(ctx, ArticleFilter{Type: &regular})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, byType, 3)

	ranged, total, err := store.List(ctx, ArticleFilter{
		Since: "2024-01-02 00:00:00",
		Until: "2024-01-02 23:59:59",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, ranged, 1)
	assert.Equal(t, article.TypeYTV, ranged[0].ArticleType)

	page, total, err := store.List(ctx, ArticleFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, total, "total ignores paging")
	require.Len(t, page, 2)
	assert.Equal(t, "https://yaledailynews.com/blog/2/", page[0].URL)

	tail, _, err := store.List(ctx, ArticleFilter{Offset: 3})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "https://yaledailynews.com/blog/4/", tail[0].URL)
}

// TestSQLiteStore_ExistingDatabase verifies reopening keeps data
func TestSQLiteStore_ExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store1, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Write(ctx, sampleArticle("https://yaledailynews.com/blog/a/")))
	require.NoError(t, store1.Close())

	store2, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	_, err = store2.Get(ctx, "https://yaledailynews.com/blog/a/")
	assert.NoError(t, err)
}
