package scraper

import (
	"context"
	"fmt"
	"log"

	"bus-listing-backend/config"
	"bus-listing-backend/internal/extract"
	"bus-listing-backend/internal/model"
	"bus-listing-backend/internal/store"
)

// Service runs one render, extract and store pass over the configured page.
type Service struct {
	cfg      config.ScraperConfig
	renderer Renderer
	repo     store.Repository
}

// Result describes a completed scrape.
type Result struct {
	Report   extract.Report
	Inserted []model.Record
}

// NewService creates a scraper service.
func NewService(cfg config.ScraperConfig, renderer Renderer, repo store.Repository) *Service {
	return &Service{cfg: cfg, renderer: renderer, repo: repo}
}

// ScrapeOnce renders the listing page, extracts every well-formed listing
// and stores them as one batch. Malformed listings are only reported;
// render and storage failures are returned and nothing is written.
func (s *Service) ScrapeOnce(ctx context.Context) (*Result, error) {
	log.Println("Executing scrape cycle...")

	if err := s.repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	html, err := s.renderer.Render(ctx, s.cfg.URL, s.cfg.Selectors.Listing)
	if err != nil {
		return nil, err
	}

	elements, err := ParseElements(html, s.cfg.Selectors)
	if err != nil {
		return nil, fmt.Errorf("failed to read listings: %w", err)
	}
	log.Printf("Found %d listing elements", len(elements))

	records, report := extract.Extract(elements)
	if len(report.Skipped) > 0 {
		log.Printf("Skipped %d of %d listings", len(report.Skipped), report.Total)
	}

	inserted, err := s.repo.InsertBatch(ctx, records)
	if err != nil {
		return nil, err
	}

	log.Printf("Scrape cycle finished: stored %d records.", len(inserted))
	return &Result{Report: report, Inserted: inserted}, nil
}
