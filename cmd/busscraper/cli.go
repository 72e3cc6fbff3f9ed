package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"bus-listing-backend/config"
	"bus-listing-backend/internal/api"
	"bus-listing-backend/internal/db"
	"bus-listing-backend/internal/query"
	"bus-listing-backend/internal/scraper"
	"bus-listing-backend/internal/store"
)

// newRenderer is replaced in tests so no browser is started.
var newRenderer = func(cfg config.ScraperConfig) scraper.Renderer {
	return scraper.NewChromeRenderer(cfg)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(logger *log.Logger) *cli.App {
	app := &cli.App{
		Name:    "busscraper",
		Usage:   "Scrape bus listings into a local store and browse them",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "./config/config.yaml",
				EnvVars: []string{"BUS_CONFIG_PATH"},
				Usage:   "Path to the YAML configuration file",
			},
		},
		Commands: []*cli.Command{
			scrapeCmd(logger),
			serveCmd(logger),
			runCmd(logger),
			queryCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// loadConfig reads the file named by --config and applies --url when set.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	if c.IsSet("url") {
		cfg.Scraper.URL = c.String("url")
	}
	return cfg, nil
}

// openRepository opens the database and the store on top of it. The
// returned func closes the pool.
func openRepository(cfg *config.Config) (store.Repository, func(), error) {
	gormDB, err := db.Open(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(gormDB); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}
	return store.NewGormStore(gormDB), closeDB, nil
}

func scrape(ctx context.Context, logger *log.Logger, cfg *config.Config, repo store.Repository) error {
	svc := scraper.NewService(cfg.Scraper, newRenderer(cfg.Scraper), repo)
	res, err := svc.ScrapeOnce(ctx)
	if err != nil {
		return err
	}
	// Each skipped listing has already been logged by the extractor.
	logger.Printf("scraped %d listings: stored %d, skipped %d", res.Report.Total, len(res.Inserted), len(res.Report.Skipped))
	return nil
}

func serve(ctx context.Context, logger *log.Logger, cfg *config.Config, repo store.Repository) error {
	limiter, rc := api.NewMiddleware(cfg.Server)
	router := api.NewRouter(query.NewService(repo), limiter, rc)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Println("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	logger.Println("Server gracefully stopped")
	return nil
}

var urlFlag = &cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Override the results page URL from the config"}

// scrapeCmd creates the scrape command.
func scrapeCmd(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "scrape",
		Usage: "Render the results page once and store every valid listing",
		Flags: []cli.Flag{urlFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			repo, closeDB, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return scrape(ctx, logger, cfg, repo)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the filterable table of stored listings",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Override the HTTP port from the config"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("port") {
				cfg.Server.Port = c.Int("port")
			}
			repo, closeDB, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.EnsureSchema(c.Context); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger, cfg, repo)
		},
	}
}

// runCmd creates the run command: one scrape followed by serving the table.
func runCmd(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Scrape once, then serve the table",
		Flags: []cli.Flag{urlFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			repo, closeDB, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := scrape(ctx, logger, cfg, repo); err != nil {
				return err
			}
			return serve(ctx, logger, cfg, repo)
		},
	}
}

// queryCmd creates the query command, which prints matching records as JSON.
func queryCmd() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Print stored listings matching the filters as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bus-type", Aliases: []string{"t"}, Value: query.AllBusTypes, Usage: "Exact bus type, or All"},
			&cli.Float64Flag{Name: "min-price", Usage: "Lowest price, inclusive (default: lowest stored price)"},
			&cli.Float64Flag{Name: "max-price", Usage: "Highest price, inclusive (default: highest stored price)"},
			&cli.Float64Flag{Name: "min-rating", Value: 0, Usage: "Lowest star rating, inclusive"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			repo, closeDB, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.EnsureSchema(c.Context); err != nil {
				return err
			}

			svc := query.NewService(repo)
			all, err := svc.Load(c.Context)
			if err != nil {
				return err
			}

			lo, hi, _ := query.PriceBounds(all)
			crit := query.Criteria{
				BusType:   c.String("bus-type"),
				MinPrice:  lo,
				MaxPrice:  hi,
				MinRating: c.Float64("min-rating"),
			}
			if c.IsSet("min-price") {
				crit.MinPrice = c.Float64("min-price")
			}
			if c.IsSet("max-price") {
				crit.MaxPrice = c.Float64("max-price")
			}
			for name, v := range map[string]float64{"min-price": crit.MinPrice, "max-price": crit.MaxPrice, "min-rating": crit.MinRating} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("invalid --%s %v", name, v)
				}
			}

			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(svc.Filter(all, crit.Predicates()...))
		},
	}
}
