package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/blawby/lawfeed/config"
	"github.com/blawby/lawfeed/logger"
	"github.com/blawby/lawfeed/post"
	"github.com/blawby/lawfeed/scraper"
	"github.com/blawby/lawfeed/search"
	"github.com/blawby/lawfeed/store"
)

func main() {
	sourceFlag := flag.String("source", "", "scrape a single source (clio, mycase, lawpay)")
	maxPages := flag.Int("max-pages", 0, "override listing pages per source")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *maxPages > 0 {
		cfg.MaxPages = *maxPages
	}

	logg := logger.New(cfg.LogLevel)

	backend, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer backend.Close()

	profiles := scraper.Profiles()
	if *sourceFlag != "" {
		source, err := post.ParseSource(*sourceFlag)
		if err != nil {
			log.Fatalf("Unknown source: %v", err)
		}
		profile, _ := scraper.ProfileFor(source)
		profiles = []scraper.Profile{profile}
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

	// Ctrl-C is the stop signal: the crawl halts between fetches and keeps
	// its checkpoint.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := orchestrator.RunAll(ctx, profiles)

	if idx, err := search.Open(cfg.IndexPath); err == nil {
		if err := idx.IndexAll(result.Posts); err != nil {
			logg.Warn("failed to index scraped posts", "error", err)
		}
		idx.Close()
	} else {
		logg.Warn("search index unavailable, skipping indexing", "error", err)
	}

	summary := map[string]any{
		"run_id":   result.RunID,
		"duration": result.Duration.String(),
		"posts":    len(result.Posts),
	}
	perSource := map[string]any{}
	for source, status := range result.Sources {
		entry := map[string]any{"posts": len(status.Posts)}
		if status.Error != "" {
			entry["error"] = status.Error
		}
		perSource[string(source)] = entry
	}
	summary["sources"] = perSource

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}
