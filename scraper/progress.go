package scraper

import (
	"fmt"
	"time"

	"github.com/blawby/lawfeed/post"
)

// State tracks where a source's crawl sits in its lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateScraping State = "scraping"
	StateError    State = "error"
)

// maxRecentErrors caps the per-source error log; the oldest entry is evicted
// first.
const maxRecentErrors = 100

// Progress is the persisted crawl checkpoint for one source. It is mutated
// only by that source's frontier; dashboards read it.
type Progress struct {
	Source        post.Source `json:"source"`
	State         State       `json:"state"`
	TotalArticles int         `json:"total_articles"`
	ScrapedCount  int         `json:"scraped_count"`
	NextCursor    string      `json:"next_cursor,omitempty"`
	IsComplete    bool        `json:"is_complete"`
	RecentErrors  []string    `json:"recent_errors,omitempty"`
	LastUpdated   time.Time   `json:"last_updated"`
}

// NewProgress returns the starting checkpoint for a source.
func NewProgress(source post.Source) *Progress {
	return &Progress{
		Source: source,
		State:  StateIdle,
	}
}

// AppendError records a timestamped error, evicting the oldest entry once
// the log is full.
func (p *Progress) AppendError(now time.Time, msg string) {
	entry := fmt.Sprintf("%s: %s", now.Format(time.RFC3339), msg)
	p.RecentErrors = append(p.RecentErrors, entry)
	if len(p.RecentErrors) > maxRecentErrors {
		p.RecentErrors = p.RecentErrors[len(p.RecentErrors)-maxRecentErrors:]
	}
}

// ProgressStore persists per-source crawl checkpoints. GetProgress returns a
// fresh checkpoint, never an error, for a source with no stored state.
type ProgressStore interface {
	GetProgress(source post.Source) (*Progress, error)
	PutProgress(p *Progress) error
}
