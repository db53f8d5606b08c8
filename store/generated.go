package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blawby/lawfeed/post"
)

// UpsertGenerated inserts or updates a generated post keyed by ID.
func (s *Store) UpsertGenerated(g *post.GeneratedPost) error {
	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = now
	}

	refs, err := json.Marshal(g.SourceReferences)
	if err != nil {
		return fmt.Errorf("failed to marshal source references: %w", err)
	}

	query := `
		INSERT INTO generated_posts (
			id, title, content, summary, image_url, source_references,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			summary = excluded.summary,
			image_url = excluded.image_url,
			source_references = excluded.source_references,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	_, err = s.db.Exec(query,
		g.ID, g.Title, g.Content, g.Summary, nullable(g.ImageURL),
		string(refs), string(g.Status),
		formatTime(g.CreatedAt), formatTime(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert generated post: %w", err)
	}
	return nil
}

// GetGenerated retrieves a generated post by ID, or nil when absent.
func (s *Store) GetGenerated(id string) (*post.GeneratedPost, error) {
	row := s.db.QueryRow(selectGenerated+" WHERE id = ?", id)
	g, err := scanGenerated(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query generated post: %w", err)
	}
	return g, nil
}

// ListGenerated returns generated posts, newest first, optionally filtered
// by status.
func (s *Store) ListGenerated(status post.Status, limit int) ([]post.GeneratedPost, error) {
	query := selectGenerated
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query generated posts: %w", err)
	}
	defer rows.Close()

	var posts []post.GeneratedPost
	for rows.Next() {
		g, err := scanGenerated(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generated post: %w", err)
		}
		posts = append(posts, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generated posts: %w", err)
	}
	return posts, nil
}

// TransitionGenerated applies a moderation decision to a pending generated
// post. Returns the updated post, or an error when the post is missing or
// already in a terminal state.
func (s *Store) TransitionGenerated(id string, to post.Status) (*post.GeneratedPost, error) {
	g, err := s.GetGenerated(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("generated post %s not found", id)
	}

	if err := g.Transition(to, time.Now()); err != nil {
		return nil, err
	}

	if err := s.UpsertGenerated(g); err != nil {
		return nil, err
	}
	return g, nil
}

const selectGenerated = `
	SELECT id, title, content, summary, image_url, source_references,
	       status, created_at, updated_at
	FROM generated_posts`

func scanGenerated(row rowScanner) (*post.GeneratedPost, error) {
	var g post.GeneratedPost
	var refs, status, createdAt, updatedAt string
	var imageURL sql.NullString

	err := row.Scan(
		&g.ID, &g.Title, &g.Content, &g.Summary, &imageURL,
		&refs, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if imageURL.Valid {
		g.ImageURL = imageURL.String
	}
	if err := json.Unmarshal([]byte(refs), &g.SourceReferences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source references: %w", err)
	}
	g.Status = post.Status(status)
	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)

	return &g, nil
}
