package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blawby/lawfeed/post"
	"github.com/blawby/lawfeed/scraper"
)

// Memory is an in-memory Backend. It backs tests and serves as the
// best-effort cache when the SQLite database is unavailable, so a scrape
// run's results are not lost outright.
type Memory struct {
	mu        sync.RWMutex
	posts     map[string]post.Post
	generated map[string]post.GeneratedPost
	progress  map[post.Source]scraper.Progress
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		posts:     make(map[string]post.Post),
		generated: make(map[string]post.GeneratedPost),
		progress:  make(map[post.Source]scraper.Progress),
	}
}

// Upsert inserts or updates a post, preserving created_at and published_at
// on update.
func (m *Memory) Upsert(p *post.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.posts[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
		p.PublishedAt = existing.PublishedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	m.posts[p.ID] = *p
	return nil
}

// Has reports whether a post with the given ID is stored.
func (m *Memory) Has(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.posts[id]
	return ok, nil
}

// Get retrieves a post by ID, or nil when absent.
func (m *Memory) Get(id string) (*post.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.posts[id]; ok {
		return &p, nil
	}
	return nil, nil
}

// GetBySource returns up to limit posts from one source, newest first.
func (m *Memory) GetBySource(source post.Source, limit int) ([]post.Post, error) {
	return m.filter(limit, func(p post.Post) bool { return p.Source == source })
}

// GetByDateRange returns up to limit posts published within [start, end],
// newest first.
func (m *Memory) GetByDateRange(start, end time.Time, limit int) ([]post.Post, error) {
	return m.filter(limit, func(p post.Post) bool {
		return !p.PublishedAt.Before(start) && !p.PublishedAt.After(end)
	})
}

// Latest returns the newest posts across all sources.
func (m *Memory) Latest(limit int) ([]post.Post, error) {
	return m.filter(limit, func(post.Post) bool { return true })
}

func (m *Memory) filter(limit int, keep func(post.Post) bool) ([]post.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var posts []post.Post
	for _, p := range m.posts {
		if keep(p) {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].PublishedAt.After(posts[j].PublishedAt)
	})
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// GetProgress loads the checkpoint for a source, returning a fresh one when
// nothing is stored yet.
func (m *Memory) GetProgress(source post.Source) (*scraper.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if prog, ok := m.progress[source]; ok {
		copied := prog
		copied.RecentErrors = append([]string(nil), prog.RecentErrors...)
		return &copied, nil
	}
	return scraper.NewProgress(source), nil
}

// PutProgress persists a source's checkpoint.
func (m *Memory) PutProgress(prog *scraper.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *prog
	copied.RecentErrors = append([]string(nil), prog.RecentErrors...)
	m.progress[prog.Source] = copied
	return nil
}

// AllProgress returns the checkpoint for every known source.
func (m *Memory) AllProgress() ([]scraper.Progress, error) {
	var all []scraper.Progress
	for _, source := range post.Sources() {
		prog, err := m.GetProgress(source)
		if err != nil {
			return nil, err
		}
		all = append(all, *prog)
	}
	return all, nil
}

// UpsertGenerated inserts or updates a generated post.
func (m *Memory) UpsertGenerated(g *post.GeneratedPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.generated[g.ID]; ok {
		g.CreatedAt = existing.CreatedAt
	} else if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = now
	}

	m.generated[g.ID] = *g
	return nil
}

// GetGenerated retrieves a generated post by ID, or nil when absent.
func (m *Memory) GetGenerated(id string) (*post.GeneratedPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.generated[id]; ok {
		return &g, nil
	}
	return nil, nil
}

// ListGenerated returns generated posts, newest first, optionally filtered
// by status.
func (m *Memory) ListGenerated(status post.Status, limit int) ([]post.GeneratedPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var posts []post.GeneratedPost
	for _, g := range m.generated {
		if status == "" || g.Status == status {
			posts = append(posts, g)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// TransitionGenerated applies a moderation decision to a pending generated
// post.
func (m *Memory) TransitionGenerated(id string, to post.Status) (*post.GeneratedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.generated[id]
	if !ok {
		return nil, fmt.Errorf("generated post %s not found", id)
	}

	if err := g.Transition(to, time.Now()); err != nil {
		return nil, err
	}

	m.generated[id] = g
	return &g, nil
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() error {
	return nil
}
