package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig holds the viewer's HTTP settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// ScraperConfig holds the page rendering and extraction settings.
type ScraperConfig struct {
	URL                 string        `yaml:"url"`
	Headless            *bool         `yaml:"headless"`
	ChromeBin           string        `yaml:"chrome_bin"`
	Debug               bool          `yaml:"debug"`
	ReadyTimeoutSeconds int           `yaml:"ready_timeout_seconds"`
	PollIntervalMs      int           `yaml:"poll_interval_ms"`
	ReadyTimeout        time.Duration `yaml:"-"`
	PollInterval        time.Duration `yaml:"-"`
	Selectors           Selectors     `yaml:"selectors"`
}

// Selectors are the CSS selectors used to locate listings on the rendered
// page. Field selectors are evaluated inside each listing match.
type Selectors struct {
	Listing       string `yaml:"listing"`
	RouteName     string `yaml:"route_name"`
	BusName       string `yaml:"bus_name"`
	BusType       string `yaml:"bus_type"`
	DepartingTime string `yaml:"departing_time"`
	Duration      string `yaml:"duration"`
	ReachingTime  string `yaml:"reaching_time"`
	StarRating    string `yaml:"star_rating"`
	Price         string `yaml:"price"`
	Seats         string `yaml:"seats_available"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSelectors match the markup of the bus search results page.
func DefaultSelectors() Selectors {
	return Selectors{
		Listing:       "li.bus-item",
		RouteName:     ".route-name",
		BusName:       ".travels",
		BusType:       ".bus-type",
		DepartingTime: ".dp-time",
		Duration:      ".dur",
		ReachingTime:  ".bp-time",
		StarRating:    ".rating",
		Price:         ".fare",
		Seats:         ".seat-left",
	}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		Scraper: ScraperConfig{
			URL:       "https://www.redbus.in/",
			Selectors: DefaultSelectors(),
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "buses.db",
		},
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads the configuration from the given path. A missing file yields
// the defaults. A .env file in the working directory and the process
// environment are applied on top.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment overrides from .env")
	}

	cfg := Default()
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("config file %s not found; using defaults", path)
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Scraper.Headless == nil {
		headless := true
		cfg.Scraper.Headless = &headless
	}
	if cfg.Scraper.ReadyTimeoutSeconds <= 0 {
		cfg.Scraper.ReadyTimeoutSeconds = 30
	}
	if cfg.Scraper.PollIntervalMs <= 0 {
		cfg.Scraper.PollIntervalMs = 250
	}
	cfg.Scraper.ReadyTimeout = time.Duration(cfg.Scraper.ReadyTimeoutSeconds) * time.Second
	cfg.Scraper.PollInterval = time.Duration(cfg.Scraper.PollIntervalMs) * time.Millisecond

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == DriverSQLite {
		cfg.Database.DSN = "buses.db"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BUS_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("BUS_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("BUS_SCRAPE_URL"); v != "" {
		cfg.Scraper.URL = v
	}
	if v := os.Getenv("CHROME_BIN"); v != "" {
		cfg.Scraper.ChromeBin = v
	}
	if v := os.Getenv("BUS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("ignoring invalid BUS_SERVER_PORT %q: %v", v, err)
		}
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("database.driver %q is not supported (use %q or %q)", c.Database.Driver, DriverSQLite, DriverPostgres)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	for _, ns := range c.Scraper.Selectors.named() {
		name, sel := ns[0], ns[1]
		if sel == "" {
			return fmt.Errorf("scraper.selectors.%s is required", name)
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("scraper.selectors.%s %q: %w", name, sel, err)
		}
	}
	return nil
}

func (s Selectors) named() [][2]string {
	return [][2]string{
		{"listing", s.Listing},
		{"route_name", s.RouteName},
		{"bus_name", s.BusName},
		{"bus_type", s.BusType},
		{"departing_time", s.DepartingTime},
		{"duration", s.Duration},
		{"reaching_time", s.ReachingTime},
		{"star_rating", s.StarRating},
		{"price", s.Price},
		{"seats_available", s.Seats},
	}
}
