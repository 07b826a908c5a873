// Package store persists enriched news items in SQLite so repeated
// runs can skip articles that were already processed.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/seenimoa/newspulse/internal/logging"
	"github.com/seenimoa/newspulse/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS news_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	published_at TIMESTAMP NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	continent TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	sentiment TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	confidence TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT '',
	relevance REAL NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_news_items_url ON news_items(url);
CREATE INDEX IF NOT EXISTS idx_news_items_published ON news_items(published_at);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	logging.Debug("store opened", "path", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Exists reports whether an item with this URL was already saved.
func (s *Store) Exists(ctx context.Context, url string) (bool, error) {
	var n int
	err := sq.Select("COUNT(1)").
		From("news_items").
		Where(sq.Eq{"url": url}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: exists: %w", err)
	}
	return n > 0, nil
}

// FilterNew returns only the items whose URLs are not in the store yet.
// Relative order is preserved.
func (s *Store) FilterNew(ctx context.Context, items []models.NewsItem) ([]models.NewsItem, error) {
	fresh := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		exists, err := s.Exists(ctx, item.URL)
		if err != nil {
			return nil, err
		}
		if !exists {
			fresh = append(fresh, item)
		}
	}
	return fresh, nil
}

// SaveItem upserts one enriched item keyed by URL.
func (s *Store) SaveItem(ctx context.Context, item models.EnrichedItem) error {
	_, err := sq.Insert("news_items").
		Columns("url", "title", "published_at", "source", "country", "continent",
			"category", "sentiment", "summary", "confidence", "provider", "relevance").
		Values(item.URL, item.Title, item.PublishedAt, item.SourceFeed,
			item.MatchedCountry, item.Continent, item.Category,
			string(item.Sentiment), item.Summary, string(item.ConfidenceTier),
			item.ProviderUsed, item.RelevanceScore).
		Suffix(`ON CONFLICT(url) DO UPDATE SET
			summary = excluded.summary,
			category = excluded.category,
			sentiment = excluded.sentiment,
			confidence = excluded.confidence,
			provider = excluded.provider,
			relevance = excluded.relevance`).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store: save item: %w", err)
	}
	return nil
}

// SaveBatch saves every item in one transaction.
func (s *Store) SaveBatch(ctx context.Context, items []models.EnrichedItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	for _, item := range items {
		_, err := sq.Insert("news_items").
			Columns("url", "title", "published_at", "source", "country", "continent",
				"category", "sentiment", "summary", "confidence", "provider", "relevance").
			Values(item.URL, item.Title, item.PublishedAt, item.SourceFeed,
				item.MatchedCountry, item.Continent, item.Category,
				string(item.Sentiment), item.Summary, string(item.ConfidenceTier),
				item.ProviderUsed, item.RelevanceScore).
			Suffix(`ON CONFLICT(url) DO UPDATE SET
				summary = excluded.summary,
				category = excluded.category,
				sentiment = excluded.sentiment,
				confidence = excluded.confidence,
				provider = excluded.provider,
				relevance = excluded.relevance`).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("store: save %q: %w", item.URL, err)
		}
	}
	return tx.Commit()
}

// Recent returns the most recently saved items, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.EnrichedItem, error) {
	rows, err := sq.Select("url", "title", "published_at", "source", "country",
		"continent", "category", "sentiment", "summary", "confidence", "provider", "relevance").
		From("news_items").
		OrderBy("published_at DESC").
		Limit(uint64(limit)).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var out []models.EnrichedItem
	for rows.Next() {
		var (
			item       models.EnrichedItem
			published  time.Time
			sentiment  string
			confidence string
		)
		if err := rows.Scan(&item.URL, &item.Title, &published, &item.SourceFeed,
			&item.MatchedCountry, &item.Continent, &item.Category, &sentiment,
			&item.Summary, &confidence, &item.ProviderUsed, &item.RelevanceScore); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		item.PublishedAt = published
		item.Sentiment = models.Sentiment(sentiment)
		item.ConfidenceTier = models.ConfidenceTier(confidence)
		out = append(out, item)
	}
	return out, rows.Err()
}

// Count returns the number of stored items.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := sq.Select("COUNT(1)").From("news_items").
		RunWith(s.db).QueryRowContext(ctx).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}
