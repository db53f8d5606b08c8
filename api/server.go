// Package api exposes the scraping pipeline, stored articles, generation,
// and feeds over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/blawby/lawfeed/config"
	"github.com/blawby/lawfeed/logger"
	"github.com/blawby/lawfeed/post"
	"github.com/blawby/lawfeed/scraper"
	"github.com/blawby/lawfeed/search"
	"github.com/blawby/lawfeed/store"
)

// Runner starts a full crawl run. Satisfied by scraper.Orchestrator.
type Runner interface {
	RunAll(ctx context.Context, profiles []scraper.Profile) *scraper.RunResult
}

// Generator synthesizes a derivative post. Satisfied by generate.Client.
type Generator interface {
	GeneratePost(ctx context.Context, sources []post.Post) (*post.GeneratedPost, error)
}

// Searcher queries the full-text index. Satisfied by search.Index.
type Searcher interface {
	Search(query string, limit int) ([]search.Result, error)
}

// Server is the HTTP API server.
type Server struct {
	cfg      *config.Config
	store    store.Backend
	runner   Runner
	gen      Generator
	searcher Searcher
	log      *logger.Logger

	mu        sync.Mutex
	cancelRun context.CancelFunc
	lastRunID string
}

// NewServer creates an API server. gen may be nil when generation is not
// configured; searcher may be nil when the index failed to open.
func NewServer(cfg *config.Config, backend store.Backend, runner Runner, gen Generator, searcher Searcher, log *logger.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    backend,
		runner:   runner,
		gen:      gen,
		searcher: searcher,
		log:      log,
	}
}

// response is the JSON envelope every endpoint returns.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, response{Success: false, Error: msg})
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Read surface, gated by the RSS key.
	read := router.Group("/", s.requireKey(s.cfg.RSSAPIKey))
	read.GET("/feed", s.handleFeed)
	read.GET("/api/articles", s.handleListArticles)
	read.GET("/api/articles/search", s.handleSearch)
	read.GET("/api/articles/:id", s.handleGetArticle)
	read.GET("/api/generated", s.handleListGenerated)

	// Mutating surface, gated by the generate key.
	write := router.Group("/", s.requireKey(s.cfg.GenerateAPIKey))
	write.POST("/api/scrape", s.handleScrape)
	write.POST("/api/scrape/stop", s.handleStop)
	write.GET("/api/scrape/progress", s.handleProgress)
	write.POST("/api/generate", s.handleGenerate)
	write.POST("/api/generated/:id/status", s.handleModerate)

	return router
}

// requireKey authenticates the x-api-key header (or a bearer token) against
// the expected secret using a constant-time comparison.
func (s *Server) requireKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("x-api-key")
		if provided == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if provided == "" {
			fail(c, http.StatusUnauthorized, "API key is required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			fail(c, http.StatusUnauthorized, "invalid API key")
			return
		}

		c.Next()
	}
}

// Serve runs the HTTP server on the configured address.
func (s *Server) Serve() error {
	s.log.Info("starting API server", "addr", s.cfg.ListenAddr)
	return s.Router().Run(s.cfg.ListenAddr)
}
