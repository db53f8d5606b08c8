package store

import (
	"time"

	"github.com/blawby/lawfeed/post"
	"github.com/blawby/lawfeed/scraper"
)

// Backend is the full persistence contract the pipeline and API consume.
// Store implements it on SQLite; Memory is the best-effort fallback used
// when the database is unavailable.
type Backend interface {
	Upsert(p *post.Post) error
	Has(id string) (bool, error)
	Get(id string) (*post.Post, error)
	GetBySource(source post.Source, limit int) ([]post.Post, error)
	GetByDateRange(start, end time.Time, limit int) ([]post.Post, error)
	Latest(limit int) ([]post.Post, error)

	GetProgress(source post.Source) (*scraper.Progress, error)
	PutProgress(prog *scraper.Progress) error
	AllProgress() ([]scraper.Progress, error)

	UpsertGenerated(g *post.GeneratedPost) error
	GetGenerated(id string) (*post.GeneratedPost, error)
	ListGenerated(status post.Status, limit int) ([]post.GeneratedPost, error)
	TransitionGenerated(id string, to post.Status) (*post.GeneratedPost, error)

	Close() error
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*Memory)(nil)
)
