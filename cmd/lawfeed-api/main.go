package main

import (
	"log"

	"github.com/blawby/lawfeed/api"
	"github.com/blawby/lawfeed/config"
	"github.com/blawby/lawfeed/generate"
	"github.com/blawby/lawfeed/logger"
	"github.com/blawby/lawfeed/scraper"
	"github.com/blawby/lawfeed/search"
	"github.com/blawby/lawfeed/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg.LogLevel)

	var backend store.Backend
	sqlStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logg.Warn("database unavailable, falling back to in-memory store", "error", err)
		backend = store.NewMemory()
	} else {
		backend = store.WithFallback(sqlStore, logg)
	}
	defer backend.Close()

	var searcher api.Searcher
	idx, err := search.Open(cfg.IndexPath)
	if err != nil {
		logg.Warn("search index unavailable, search endpoint disabled", "error", err)
	} else {
		searcher = idx
		defer idx.Close()
	}

	httpFetcher := scraper.NewHTTPFetcher(cfg.FetchTimeout, cfg.FetchRetries, logg)
	fetcherFor := func(p scraper.Profile) scraper.Fetcher {
		if p.Render {
			return scraper.NewRenderFetcher(cfg.FetchTimeout, cfg.FetchRetries, p.WaitSelector, logg)
		}
		return httpFetcher
	}

	frontier := scraper.NewFrontier(fetcherFor, backend, backend, cfg.BatchSize, logg)
	orchestrator := scraper.NewOrchestrator(
		frontier, scraper.NewExtractor(), fetcherFor, backend,
		cfg.MaxPages, cfg.PageDelay, cfg.SiteDelay, logg,
	)

	var gen api.Generator
	if cfg.GenerationEnabled() {
		gen = generate.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ChatModel, cfg.ImageModel, logg)
	} else {
		logg.Info("OPENAI_API_KEY not set, generation endpoints disabled")
	}

	server := api.NewServer(cfg, backend, orchestrator, gen, searcher, logg)
	if err := server.Serve(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
