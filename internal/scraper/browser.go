package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/chromedp/chromedp"

	"bus-listing-backend/config"
)

// ErrNotReady means the listing selector never matched within the ready
// timeout.
var ErrNotReady = errors.New("listings did not appear before the ready timeout")

// Renderer loads a page and returns its HTML once readySelector matches.
type Renderer interface {
	Render(ctx context.Context, url, readySelector string) (string, error)
}

// ChromeRenderer renders pages in a headless Chrome driven by chromedp.
type ChromeRenderer struct {
	cfg config.ScraperConfig
}

// NewChromeRenderer creates a renderer using the scraper settings.
func NewChromeRenderer(cfg config.ScraperConfig) *ChromeRenderer {
	return &ChromeRenderer{cfg: cfg}
}

// Render navigates to url, then polls until readySelector matches at least
// one element, giving up after the configured ready timeout or when ctx is
// cancelled.
func (r *ChromeRenderer) Render(ctx context.Context, url, readySelector string) (string, error) {
	headless := r.cfg.Headless == nil || *r.cfg.Headless
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if bin := findChromeBinary(r.cfg.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	var ctxOpts []chromedp.ContextOption
	if !r.cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(func(string, ...interface{}) {}))
	}
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, ctxOpts...)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, r.cfg.ReadyTimeout)
	defer cancelRun()

	log.Printf("Rendering %s (waiting up to %s for %q)", url, r.cfg.ReadyTimeout, readySelector)

	var ready bool
	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Poll(readinessExpr(readySelector), &ready,
			chromedp.WithPollingInterval(r.cfg.PollInterval),
			chromedp.WithPollingTimeout(r.cfg.ReadyTimeout),
		),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("render %s: %w", url, ctx.Err())
		}
		if errors.Is(err, chromedp.ErrPollingTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("render %s: %w", url, ErrNotReady)
		}
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// readinessExpr builds the JS predicate polled by Render.
func readinessExpr(selector string) string {
	quoted, _ := json.Marshal(selector)
	return fmt.Sprintf("document.querySelector(%s) !== null", quoted)
}

// findChromeBinary returns the configured binary, or the first Chrome or
// Chromium found on the machine. An empty result lets chromedp pick.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
