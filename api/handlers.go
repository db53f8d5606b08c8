package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blawby/lawfeed/feed"
	"github.com/blawby/lawfeed/generate"
	"github.com/blawby/lawfeed/post"
	"github.com/blawby/lawfeed/scraper"
)

const defaultLimit = 20

// handleScrape starts a crawl run over every source. The run proceeds in the
// background; the response carries an acknowledgement, and progress is
// observable via the progress endpoint.
func (s *Server) handleScrape(c *gin.Context) {
	s.mu.Lock()
	if s.cancelRun != nil {
		s.mu.Unlock()
		fail(c, http.StatusConflict, "a scrape run is already in progress")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	s.mu.Unlock()

	profiles := scraper.Profiles()
	if src := c.Query("source"); src != "" {
		source, err := post.ParseSource(src)
		if err != nil {
			s.clearRun()
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		profile, _ := scraper.ProfileFor(source)
		profiles = []scraper.Profile{profile}
	}

	go func() {
		defer s.clearRun()
		result := s.runner.RunAll(ctx, profiles)

		s.mu.Lock()
		s.lastRunID = result.RunID
		s.mu.Unlock()

		if s.searcher == nil {
			return
		}
		if indexer, okType := s.searcher.(interface{ IndexAll([]post.Post) error }); okType {
			if err := indexer.IndexAll(result.Posts); err != nil {
				s.log.Warn("failed to index scraped posts", "error", err)
			}
		}
	}()

	ok(c, gin.H{"status": "started", "sources": len(profiles)})
}

// handleStop cancels the in-flight crawl run. The stop signal is polled
// between article fetches, so partial progress is persisted.
func (s *Server) handleStop(c *gin.Context) {
	s.mu.Lock()
	cancel := s.cancelRun
	s.mu.Unlock()

	if cancel == nil {
		ok(c, gin.H{"status": "idle"})
		return
	}

	cancel()
	ok(c, gin.H{"status": "stopping"})
}

func (s *Server) clearRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
}

// handleProgress reports the crawl checkpoint for every source, plus
// whether a run is currently in flight.
func (s *Server) handleProgress(c *gin.Context) {
	all, err := s.store.AllProgress()
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load progress: "+err.Error())
		return
	}

	s.mu.Lock()
	running := s.cancelRun != nil
	lastRun := s.lastRunID
	s.mu.Unlock()

	ok(c, gin.H{"running": running, "last_run_id": lastRun, "sources": all})
}

// handleListArticles lists stored posts, optionally filtered by source or
// published-date range. An empty result is a success with an empty list,
// not an error.
func (s *Server) handleListArticles(c *gin.Context) {
	limit := queryLimit(c)

	if src := c.Query("source"); src != "" {
		source, err := post.ParseSource(src)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		posts, err := s.store.GetBySource(source, limit)
		if err != nil {
			fail(c, http.StatusInternalServerError, "failed to list articles: "+err.Error())
			return
		}
		ok(c, emptyable(posts))
		return
	}

	if start := c.Query("start"); start != "" {
		startTime, err := time.Parse(time.RFC3339, start)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid start parameter: must be RFC 3339")
			return
		}
		endTime := time.Now()
		if end := c.Query("end"); end != "" {
			endTime, err = time.Parse(time.RFC3339, end)
			if err != nil {
				fail(c, http.StatusBadRequest, "invalid end parameter: must be RFC 3339")
				return
			}
		}
		posts, err := s.store.GetByDateRange(startTime, endTime, limit)
		if err != nil {
			fail(c, http.StatusInternalServerError, "failed to list articles: "+err.Error())
			return
		}
		ok(c, emptyable(posts))
		return
	}

	posts, err := s.store.Latest(limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list articles: "+err.Error())
		return
	}
	ok(c, emptyable(posts))
}

// handleGetArticle returns one stored post by ID.
func (s *Server) handleGetArticle(c *gin.Context) {
	id := c.Param("id")
	p, err := s.store.Get(id)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to get article: "+err.Error())
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, "article not found")
		return
	}
	ok(c, p)
}

// handleSearch queries the full-text index.
func (s *Server) handleSearch(c *gin.Context) {
	if s.searcher == nil {
		fail(c, http.StatusServiceUnavailable, "search index is not available")
		return
	}

	query := c.Query("q")
	if query == "" {
		fail(c, http.StatusBadRequest, "q parameter is required")
		return
	}

	hits, err := s.searcher.Search(query, queryLimit(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "search failed: "+err.Error())
		return
	}
	ok(c, emptyable(hits))
}

// generateRequest selects the source posts fed into generation. When
// SourceIDs is empty the latest posts are used, capped at Limit.
type generateRequest struct {
	SourceIDs []string `json:"source_ids"`
	Limit     int      `json:"limit"`
}

// handleGenerate synthesizes a new pending post from stored source posts.
// An empty source-post set is a 400.
func (s *Server) handleGenerate(c *gin.Context) {
	if s.gen == nil {
		fail(c, http.StatusServiceUnavailable, "generation is not configured")
		return
	}

	// An absent body means "use the latest posts"; malformed JSON is an
	// error.
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sources, err := s.collectSources(req)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load source posts: "+err.Error())
		return
	}
	if len(sources) == 0 {
		fail(c, http.StatusBadRequest, "no source posts available for generation")
		return
	}

	generated, err := s.gen.GeneratePost(c.Request.Context(), sources)
	if err != nil {
		if errors.Is(err, generate.ErrNoSources) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, "generation failed: "+err.Error())
		return
	}

	if err := s.store.UpsertGenerated(generated); err != nil {
		fail(c, http.StatusInternalServerError, "failed to store generated post: "+err.Error())
		return
	}

	ok(c, generated)
}

func (s *Server) collectSources(req generateRequest) ([]post.Post, error) {
	if len(req.SourceIDs) > 0 {
		var sources []post.Post
		for _, id := range req.SourceIDs {
			p, err := s.store.Get(id)
			if err != nil {
				return nil, err
			}
			if p != nil {
				sources = append(sources, *p)
			}
		}
		return sources, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}
	return s.store.Latest(limit)
}

// moderateRequest carries a moderation decision.
type moderateRequest struct {
	Status post.Status `json:"status"`
}

// handleModerate applies an approve/reject decision to a pending generated
// post.
func (s *Server) handleModerate(c *gin.Context) {
	var req moderateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !req.Status.Valid() || req.Status == post.StatusPending {
		fail(c, http.StatusBadRequest, "status must be approved or rejected")
		return
	}

	g, err := s.store.TransitionGenerated(c.Param("id"), req.Status)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	ok(c, g)
}

// handleListGenerated lists generated posts, optionally filtered by status.
func (s *Server) handleListGenerated(c *gin.Context) {
	var status post.Status
	if v := c.Query("status"); v != "" {
		status = post.Status(v)
		if !status.Valid() {
			fail(c, http.StatusBadRequest, "invalid status filter")
			return
		}
	}

	posts, err := s.store.ListGenerated(status, queryLimit(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list generated posts: "+err.Error())
		return
	}
	ok(c, emptyable(posts))
}

// handleFeed renders the latest posts as RSS, Atom, or JSON Feed depending
// on the Accept header.
func (s *Server) handleFeed(c *gin.Context) {
	posts, err := s.store.Latest(defaultLimit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load articles: "+err.Error())
		return
	}

	format := feed.FromAccept(c.GetHeader("Accept"))
	body, err := feed.Render(posts, format, time.Now())
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to render feed: "+err.Error())
		return
	}

	c.Data(http.StatusOK, format.ContentType(), []byte(body))
}

func queryLimit(c *gin.Context) int {
	limit := defaultLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}

// emptyable substitutes an empty slice for nil so JSON clients always see an
// array.
func emptyable[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
