package store

import (
	"time"

	"github.com/blawby/lawfeed/logger"
	"github.com/blawby/lawfeed/post"
	"github.com/blawby/lawfeed/scraper"
)

// Fallback wraps a primary backend with an in-memory cache. When the
// primary fails, writes land in the cache and reads are served from it, so
// a scrape run survives a flaky database instead of losing its results.
// Cached data is not replayed into the primary; this is best-effort
// degradation, surfaced as warnings.
type Fallback struct {
	primary Backend
	cache   *Memory
	log     *logger.Logger
}

// WithFallback wraps primary with an in-memory fallback cache.
func WithFallback(primary Backend, log *logger.Logger) *Fallback {
	return &Fallback{
		primary: primary,
		cache:   NewMemory(),
		log:     log,
	}
}

func (f *Fallback) warn(op string, err error) {
	f.log.Warn("store degraded to in-memory cache", "op", op, "error", err)
}

// Upsert writes to the primary, degrading to the cache on failure.
func (f *Fallback) Upsert(p *post.Post) error {
	if err := f.primary.Upsert(p); err != nil {
		f.warn("upsert", err)
		return f.cache.Upsert(p)
	}
	return nil
}

// Has checks the primary, falling back to the cache on failure.
func (f *Fallback) Has(id string) (bool, error) {
	has, err := f.primary.Has(id)
	if err != nil {
		f.warn("has", err)
		return f.cache.Has(id)
	}
	if !has {
		// A post written during degradation only exists in the cache.
		return f.cache.Has(id)
	}
	return true, nil
}

// Get reads from the primary, falling back to the cache.
func (f *Fallback) Get(id string) (*post.Post, error) {
	p, err := f.primary.Get(id)
	if err != nil {
		f.warn("get", err)
		return f.cache.Get(id)
	}
	if p == nil {
		return f.cache.Get(id)
	}
	return p, nil
}

// GetBySource reads from the primary, falling back to the cache.
func (f *Fallback) GetBySource(source post.Source, limit int) ([]post.Post, error) {
	posts, err := f.primary.GetBySource(source, limit)
	if err != nil {
		f.warn("get_by_source", err)
		return f.cache.GetBySource(source, limit)
	}
	return posts, nil
}

// GetByDateRange reads from the primary, falling back to the cache.
func (f *Fallback) GetByDateRange(start, end time.Time, limit int) ([]post.Post, error) {
	posts, err := f.primary.GetByDateRange(start, end, limit)
	if err != nil {
		f.warn("get_by_date_range", err)
		return f.cache.GetByDateRange(start, end, limit)
	}
	return posts, nil
}

// Latest reads from the primary, falling back to the cache.
func (f *Fallback) Latest(limit int) ([]post.Post, error) {
	posts, err := f.primary.Latest(limit)
	if err != nil {
		f.warn("latest", err)
		return f.cache.Latest(limit)
	}
	return posts, nil
}

// GetProgress reads from the primary, falling back to the cache.
func (f *Fallback) GetProgress(source post.Source) (*scraper.Progress, error) {
	prog, err := f.primary.GetProgress(source)
	if err != nil {
		f.warn("get_progress", err)
		return f.cache.GetProgress(source)
	}
	return prog, nil
}

// PutProgress writes to the primary, degrading to the cache on failure.
func (f *Fallback) PutProgress(prog *scraper.Progress) error {
	if err := f.primary.PutProgress(prog); err != nil {
		f.warn("put_progress", err)
		return f.cache.PutProgress(prog)
	}
	return nil
}

// AllProgress reads from the primary, falling back to the cache.
func (f *Fallback) AllProgress() ([]scraper.Progress, error) {
	all, err := f.primary.AllProgress()
	if err != nil {
		f.warn("all_progress", err)
		return f.cache.AllProgress()
	}
	return all, nil
}

// UpsertGenerated writes to the primary, degrading to the cache on failure.
func (f *Fallback) UpsertGenerated(g *post.GeneratedPost) error {
	if err := f.primary.UpsertGenerated(g); err != nil {
		f.warn("upsert_generated", err)
		return f.cache.UpsertGenerated(g)
	}
	return nil
}

// GetGenerated reads from the primary, falling back to the cache.
func (f *Fallback) GetGenerated(id string) (*post.GeneratedPost, error) {
	g, err := f.primary.GetGenerated(id)
	if err != nil {
		f.warn("get_generated", err)
		return f.cache.GetGenerated(id)
	}
	if g == nil {
		return f.cache.GetGenerated(id)
	}
	return g, nil
}

// ListGenerated reads from the primary, falling back to the cache.
func (f *Fallback) ListGenerated(status post.Status, limit int) ([]post.GeneratedPost, error) {
	posts, err := f.primary.ListGenerated(status, limit)
	if err != nil {
		f.warn("list_generated", err)
		return f.cache.ListGenerated(status, limit)
	}
	return posts, nil
}

// TransitionGenerated applies a moderation decision on the primary, falling
// back to the cache when the primary fails.
func (f *Fallback) TransitionGenerated(id string, to post.Status) (*post.GeneratedPost, error) {
	g, err := f.primary.TransitionGenerated(id, to)
	if err != nil {
		if cached, cacheErr := f.cache.GetGenerated(id); cacheErr == nil && cached != nil {
			f.warn("transition_generated", err)
			return f.cache.TransitionGenerated(id, to)
		}
		return nil, err
	}
	return g, nil
}

// Close closes the primary backend.
func (f *Fallback) Close() error {
	return f.primary.Close()
}

var _ Backend = (*Fallback)(nil)
