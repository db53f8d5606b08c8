package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blawby/lawfeed/logger"
	"github.com/blawby/lawfeed/post"
)

// PostStore is the slice of the store the crawl needs: atomic per-key
// upserts keyed by post ID.
type PostStore interface {
	Upsert(p *post.Post) error
}

// SourceStatus is one source's outcome from a run: its posts on success, or
// the error that ended its crawl. A canceled run reports the posts collected
// before the stop signal.
type SourceStatus struct {
	Posts []post.Post `json:"posts"`
	Err   error       `json:"-"`
	Error string      `json:"error,omitempty"`
}

// RunResult aggregates a full crawl run.
type RunResult struct {
	RunID     string                        `json:"run_id"`
	StartedAt time.Time                     `json:"started_at"`
	Duration  time.Duration                 `json:"duration"`
	Posts     []post.Post                   `json:"posts"`
	Sources   map[post.Source]*SourceStatus `json:"sources"`
}

// Orchestrator runs the per-source crawls concurrently. A failure in one
// source is recorded as that source's result without canceling the others.
type Orchestrator struct {
	frontier  *Frontier
	extractor *Extractor
	fetchers  func(Profile) Fetcher
	store     PostStore
	maxPages  int
	pageDelay time.Duration
	siteDelay time.Duration
	log       *logger.Logger
}

// NewOrchestrator wires the crawl pipeline together. pageDelay is the
// minimum pause between article fetches within one source; siteDelay
// staggers the launch of successive source crawls.
func NewOrchestrator(frontier *Frontier, extractor *Extractor, fetcherFor func(Profile) Fetcher, store PostStore, maxPages int, pageDelay, siteDelay time.Duration, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		frontier:  frontier,
		extractor: extractor,
		fetchers:  fetcherFor,
		store:     store,
		maxPages:  maxPages,
		pageDelay: pageDelay,
		siteDelay: siteDelay,
		log:       log,
	}
}

// RunAll crawls every profile concurrently and aggregates the results.
// Canceling ctx is the stop signal: it is polled between article fetches,
// each source halts cleanly, and partial progress stays persisted.
func (o *Orchestrator) RunAll(ctx context.Context, profiles []Profile) *RunResult {
	started := time.Now()
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Posts:     []post.Post{},
		Sources:   make(map[post.Source]*SourceStatus, len(profiles)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, profile := range profiles {
		wg.Add(1)
		go func(profile Profile, stagger time.Duration) {
			defer wg.Done()

			if stagger > 0 {
				select {
				case <-time.After(stagger):
				case <-ctx.Done():
					return
				}
			}

			posts, err := o.crawlSource(ctx, profile)

			mu.Lock()
			defer mu.Unlock()
			status := &SourceStatus{Posts: posts}
			if err != nil {
				status.Err = err
				status.Error = err.Error()
			}
			result.Sources[profile.Source] = status
			result.Posts = append(result.Posts, posts...)
		}(profile, time.Duration(i)*o.siteDelay)
	}

	wg.Wait()
	result.Duration = time.Since(started)

	o.log.Info("crawl run finished", "run_id", result.RunID, "posts", len(result.Posts), "duration", result.Duration)
	return result
}

// crawlSource walks listing pages for one source, fetching and extracting
// discovered articles in listing order. Per-article failures are logged and
// skipped; only frontier failures end the source's crawl.
func (o *Orchestrator) crawlSource(ctx context.Context, profile Profile) (collected []post.Post, err error) {
	log := o.log.With("source", profile.Source)
	fetcher := o.fetchers(profile)

	delay := o.pageDelay
	if profile.PageDelay > 0 {
		delay = profile.PageDelay
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("crawl panicked", "panic", r)
			err = &SourceCrawlError{Source: profile.Source, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	for page := 0; page < o.maxPages; page++ {
		batch, err := o.frontier.NextBatch(ctx, profile)
		if err != nil {
			if recErr := o.frontier.RecordError(profile.Source, err); recErr != nil {
				log.Warn("failed to record crawl error", "error", recErr)
			}
			return collected, &SourceCrawlError{Source: profile.Source, Err: err}
		}

		scraped := 0
		for _, articleURL := range batch.URLs {
			// Stop signal: halt cleanly, keep the cursor on this page so the
			// remaining URLs are rediscovered next run.
			if ctx.Err() != nil {
				if err := o.frontier.RecordBatchResult(profile.Source, scraped, batch.Cursor); err != nil {
					log.Warn("failed to checkpoint partial batch", "error", err)
				}
				log.Info("crawl stopped", "scraped", scraped)
				return collected, nil
			}

			p, err := o.scrapeArticle(ctx, fetcher, profile, articleURL)
			if err != nil {
				switch err.(type) {
				case *ExtractionFailure:
					log.Warn("extraction failed, skipping", "url", articleURL)
				default:
					log.Warn("article fetch failed, skipping", "url", articleURL, "error", err)
				}
				if recErr := o.frontier.RecordError(profile.Source, err); recErr != nil {
					log.Warn("failed to record article error", "error", recErr)
				}
				continue
			}

			if err := o.store.Upsert(p); err != nil {
				log.Warn("failed to store post", "id", p.ID, "error", err)
				if recErr := o.frontier.RecordError(profile.Source, err); recErr != nil {
					log.Warn("failed to record store error", "error", recErr)
				}
				continue
			}

			collected = append(collected, *p)
			scraped++
			log.Debug("scraped article", "id", p.ID, "title", p.Title)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}

		if err := o.frontier.RecordBatchResult(profile.Source, scraped, batch.NextCursor); err != nil {
			return collected, &SourceCrawlError{Source: profile.Source, Err: err}
		}

		if batch.NextCursor == "" {
			break
		}
	}

	return collected, nil
}

func (o *Orchestrator) scrapeArticle(ctx context.Context, fetcher Fetcher, profile Profile, articleURL string) (*post.Post, error) {
	doc, err := fetcher.Fetch(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	p, err := o.extractor.Extract(doc, profile, articleURL, time.Now())
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("no stable ID derivable from %s", articleURL)
	}

	return p, nil
}
