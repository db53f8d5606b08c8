// Package store persists normalized posts, generated posts, and crawl
// progress in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/blawby/lawfeed/post"
	"github.com/blawby/lawfeed/scraper"
)

// Store is the SQLite-backed persistence layer. Upserts are atomic per key,
// which is all the crawl needs: sources never write each other's rows.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		summary TEXT NOT NULL,
		url TEXT NOT NULL,
		image_url TEXT,
		published_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_source ON posts(source, published_at DESC);
	CREATE INDEX IF NOT EXISTS idx_posts_published ON posts(published_at DESC);

	CREATE TABLE IF NOT EXISTS generated_posts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		summary TEXT NOT NULL,
		image_url TEXT,
		source_references TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS crawl_progress (
		source TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		total_articles INTEGER NOT NULL DEFAULT 0,
		scraped_count INTEGER NOT NULL DEFAULT 0,
		next_cursor TEXT,
		is_complete INTEGER NOT NULL DEFAULT 0,
		recent_errors TEXT NOT NULL DEFAULT '[]',
		last_updated TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or updates a post keyed by ID. A re-scrape updates title,
// content, summary, image and URL and bumps updated_at, but the original
// created_at and published_at are preserved. Last writer wins under
// concurrent upserts of the same ID.
func (s *Store) Upsert(p *post.Post) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO posts (
			id, source, title, content, summary, url, image_url,
			published_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			summary = excluded.summary,
			url = excluded.url,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(query,
		p.ID, string(p.Source), p.Title, p.Content, p.Summary, p.URL,
		nullable(p.ImageURL),
		formatTime(p.PublishedAt), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}
	return nil
}

// Has reports whether a post with the given ID is stored.
func (s *Store) Has(id string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM posts WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query post: %w", err)
	}
	return true, nil
}

// Get retrieves a single post by ID, or nil when absent.
func (s *Store) Get(id string) (*post.Post, error) {
	row := s.db.QueryRow(selectPosts+" WHERE id = ?", id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query post: %w", err)
	}
	return p, nil
}

// GetBySource returns up to limit posts from one source, newest first by
// published date.
func (s *Store) GetBySource(source post.Source, limit int) ([]post.Post, error) {
	rows, err := s.db.Query(
		selectPosts+" WHERE source = ? ORDER BY published_at DESC LIMIT ?",
		string(source), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// GetByDateRange returns up to limit posts published within [start, end],
// newest first.
func (s *Store) GetByDateRange(start, end time.Time, limit int) ([]post.Post, error) {
	rows, err := s.db.Query(
		selectPosts+" WHERE published_at >= ? AND published_at <= ? ORDER BY published_at DESC LIMIT ?",
		formatTime(start), formatTime(end), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// Latest returns the newest posts across all sources.
func (s *Store) Latest(limit int) ([]post.Post, error) {
	rows, err := s.db.Query(selectPosts+" ORDER BY published_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

const selectPosts = `
	SELECT id, source, title, content, summary, url, image_url,
	       published_at, created_at, updated_at
	FROM posts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*post.Post, error) {
	var p post.Post
	var source, publishedAt, createdAt, updatedAt string
	var imageURL sql.NullString

	err := row.Scan(
		&p.ID, &source, &p.Title, &p.Content, &p.Summary, &p.URL,
		&imageURL, &publishedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Source = post.Source(source)
	if imageURL.Valid {
		p.ImageURL = imageURL.String
	}
	p.PublishedAt = parseTime(publishedAt)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)

	return &p, nil
}

func collectPosts(rows *sql.Rows) ([]post.Post, error) {
	var posts []post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

// GetProgress loads the checkpoint for a source, returning a fresh one when
// nothing is stored yet. Implements scraper.ProgressStore.
func (s *Store) GetProgress(source post.Source) (*scraper.Progress, error) {
	query := `
		SELECT state, total_articles, scraped_count, next_cursor, is_complete,
		       recent_errors, last_updated
		FROM crawl_progress
		WHERE source = ?
	`

	var prog scraper.Progress
	var state, recentErrors, lastUpdated string
	var nextCursor sql.NullString
	var isComplete int

	err := s.db.QueryRow(query, string(source)).Scan(
		&state, &prog.TotalArticles, &prog.ScrapedCount,
		&nextCursor, &isComplete, &recentErrors, &lastUpdated,
	)
	if err == sql.ErrNoRows {
		return scraper.NewProgress(source), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}

	prog.Source = source
	prog.State = scraper.State(state)
	if nextCursor.Valid {
		prog.NextCursor = nextCursor.String
	}
	prog.IsComplete = isComplete != 0
	prog.LastUpdated = parseTime(lastUpdated)
	if err := json.Unmarshal([]byte(recentErrors), &prog.RecentErrors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recent errors: %w", err)
	}

	return &prog, nil
}

// PutProgress persists a source's checkpoint. Implements
// scraper.ProgressStore.
func (s *Store) PutProgress(prog *scraper.Progress) error {
	recentErrors, err := json.Marshal(prog.RecentErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal recent errors: %w", err)
	}
	if prog.RecentErrors == nil {
		recentErrors = []byte("[]")
	}

	query := `
		INSERT INTO crawl_progress (
			source, state, total_articles, scraped_count, next_cursor,
			is_complete, recent_errors, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			state = excluded.state,
			total_articles = excluded.total_articles,
			scraped_count = excluded.scraped_count,
			next_cursor = excluded.next_cursor,
			is_complete = excluded.is_complete,
			recent_errors = excluded.recent_errors,
			last_updated = excluded.last_updated
	`

	_, err = s.db.Exec(query,
		string(prog.Source), string(prog.State), prog.TotalArticles, prog.ScrapedCount,
		nullable(prog.NextCursor), boolToInt(prog.IsComplete),
		string(recentErrors), formatTime(prog.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// AllProgress returns the checkpoint for every known source.
func (s *Store) AllProgress() ([]scraper.Progress, error) {
	var all []scraper.Progress
	for _, source := range post.Sources() {
		prog, err := s.GetProgress(source)
		if err != nil {
			return nil, err
		}
		all = append(all, *prog)
	}
	return all, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
