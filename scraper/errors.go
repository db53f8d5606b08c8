package scraper

import (
	"fmt"

	"github.com/blawby/lawfeed/post"
)

// FetchError reports a URL that could not be retrieved after exhausting
// retries. It is retryable on a later run; within a crawl it skips only the
// affected URL.
type FetchError struct {
	URL        string
	LastStatus int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.LastStatus != 0 {
		return fmt.Sprintf("fetch %s failed after %d attempts: HTTP %d", e.URL, e.Attempts, e.LastStatus)
	}
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionFailure means no selector in the profile's fallback chains
// produced a title or content for a page. Selector drift makes this a
// frequent, expected outcome: the URL is skipped and the crawl continues.
type ExtractionFailure struct {
	URL string
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("no title or content extracted from %s", e.URL)
}

// SourceCrawlError is fatal to a single source's run. The orchestrator
// records it as that source's result without affecting the other sources.
type SourceCrawlError struct {
	Source post.Source
	Err    error
}

func (e *SourceCrawlError) Error() string {
	return fmt.Sprintf("crawl of %s failed: %v", e.Source, e.Err)
}

func (e *SourceCrawlError) Unwrap() error { return e.Err }
