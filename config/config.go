package config

import (
	"fmt"
	"os"
	"time"

	"floorwatch/scraper"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is built once at startup and passed to every component
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Browser   BrowserConfig
	Rates     RatesConfig
	Discovery DiscoveryConfig
	Scheduler SchedulerConfig
	Log       LogConfig
	Trackers  []TrackerConfig `validate:"required,min=1,dive"`
}

type ServerConfig struct {
	Port           string  `validate:"required,numeric"`
	RateLimit      float64 `validate:"gte=0"` // requests per second per client, 0 disables
	CORSOrigins    []string
	RequestTimeout time.Duration `validate:"gt=0"`
}

type DatabaseConfig struct {
	// Driver is postgres, sqlite or memory
	Driver string `validate:"required,oneof=postgres sqlite memory"`
	URL    string `validate:"required_if=Driver postgres"`
}

type BrowserConfig struct {
	ControlURL  string
	Bin         string
	Headless    bool
	Stealth     bool
	LoadTimeout time.Duration
	WaitTimeout time.Duration
	SettleDelay time.Duration
}

type RatesConfig struct {
	// Providers in query order
	Providers       []string      `validate:"required,min=1,dive,oneof=coingecko binance exchangerate-api cbr cross static"`
	Timeout         time.Duration `validate:"gt=0"`
	Static          string
	CoinGeckoURL    string
	BinanceURL      string
	ExchangeRateURL string
	CBRURL          string
	// CrossPivot is the intermediate currency of the cross provider
	CrossPivot string
}

type DiscoveryConfig struct {
	RenderTimeout time.Duration `validate:"gt=0"`
	Locales       []string      `validate:"required,min=1"`
}

type SchedulerConfig struct {
	// Schedule is a cron expression with seconds; empty disables refreshing
	Schedule string
}

type LogConfig struct {
	Level  string `validate:"omitempty,oneof=trace debug info warn error"`
	Format string `validate:"omitempty,oneof=console json"`
}

// TrackerConfig describes one tracked item
type TrackerConfig struct {
	Key                string                   `yaml:"key" validate:"required"`
	Title              string                   `yaml:"title"`
	ListingURL         string                   `yaml:"listing_url" validate:"required,url"`
	ListingLocator     scraper.Locator          `yaml:"listing_locator"`
	SoldListingURL     string                   `yaml:"sold_listing_url" validate:"required_if=Baseline sold"`
	SoldListingLocator *scraper.Locator         `yaml:"sold_listing_locator"`
	DetailReady        *scraper.Locator         `yaml:"detail_ready"`
	Extraction         scraper.ExtractionConfig `yaml:"extraction"`
	Baseline           string                   `yaml:"baseline" validate:"omitempty,oneof=history sold none"`
	ReportCurrencies   []string                 `yaml:"report_currencies"`
	HistoryCurrency    string                   `yaml:"history_currency"`
}

type trackersFile struct {
	Trackers []TrackerConfig `yaml:"trackers"`
}

var validate = validator.New()

// Load reads .env (if present) and the environment, then the trackers file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RateLimit:      getEnvFloat("RATE_LIMIT", 2),
			CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 90*time.Second),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "sqlite"),
			URL:    getEnv("DATABASE_URL", "data/floorwatch.db"),
		},
		Browser: BrowserConfig{
			ControlURL:  getEnv("BROWSER_CONTROL_URL", ""),
			Bin:         getEnv("CHROMIUM_BIN", ""),
			Headless:    getEnvBool("BROWSER_HEADLESS", true),
			Stealth:     getEnvBool("BROWSER_STEALTH", true),
			LoadTimeout: getEnvDuration("BROWSER_LOAD_TIMEOUT", 30*time.Second),
			WaitTimeout: getEnvDuration("BROWSER_WAIT_TIMEOUT", 15*time.Second),
			SettleDelay: getEnvDuration("BROWSER_SETTLE_DELAY", 500*time.Millisecond),
		},
		Rates: RatesConfig{
			Providers:       getEnvList("RATE_PROVIDERS", []string{"binance", "coingecko", "exchangerate-api", "cross", "cbr"}),
			Timeout:         getEnvDuration("RATE_TIMEOUT", 5*time.Second),
			Static:          getEnv("STATIC_RATES", ""),
			CoinGeckoURL:    getEnv("COINGECKO_URL", ""),
			BinanceURL:      getEnv("BINANCE_URL", ""),
			ExchangeRateURL: getEnv("EXCHANGERATE_API_URL", ""),
			CBRURL:          getEnv("CBR_URL", ""),
			CrossPivot:      getEnv("CROSS_PIVOT", "USD"),
		},
		Discovery: DiscoveryConfig{
			RenderTimeout: getEnvDuration("RENDER_TIMEOUT", 60*time.Second),
			Locales:       getEnvList("LOCALES", []string{"en", "ru"}),
		},
		Scheduler: SchedulerConfig{
			Schedule: getEnv("REFRESH_SCHEDULE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	trackers, err := LoadTrackers(getEnv("TRACKERS_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Trackers = trackers

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTrackers reads trackers from a YAML file; an empty path yields the defaults
func LoadTrackers(path string) ([]TrackerConfig, error) {
	if path == "" {
		return DefaultTrackers(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trackers file: %w", err)
	}
	return ParseTrackers(data)
}

// ParseTrackers decodes a trackers document
func ParseTrackers(data []byte) ([]TrackerConfig, error) {
	var f trackersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse trackers file: %w", err)
	}
	if len(f.Trackers) == 0 {
		return nil, fmt.Errorf("trackers file defines no trackers")
	}
	return f.Trackers, nil
}

// Validate checks struct constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DefaultTrackers is the fragment.com anonymous +888 numbers floor
func DefaultTrackers() []TrackerConfig {
	return []TrackerConfig{{
		Key:            "888-floor",
		Title:          "Anonymous Numbers",
		ListingURL:     "https://fragment.com/numbers?filter=sale",
		ListingLocator: scraper.Locator{CSS: `a[href*="/number/888"]`},
		SoldListingURL: "https://fragment.com/numbers?filter=sold",
		DetailReady:    &scraper.Locator{CSS: "div, span", TextRegex: "TON"},
		Extraction: scraper.ExtractionConfig{
			Currency:    "TON",
			NumberStyle: string(scraper.StyleDot),
			Strategies: []scraper.StrategyConfig{
				{Kind: "selector", CSS: ".tm-section-bid-info .icon-ton", Require: `\d`},
				{Kind: "text", Pattern: `TON`, Require: `\d`},
				{Kind: "regex", Pattern: `(?:^|[^\d.,])((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?)\s*TON`},
			},
			Quotes: []scraper.QuoteConfig{{
				Currency:   "USD",
				Strategies: []scraper.StrategyConfig{{Kind: "text", Pattern: `\$`, Require: `~`}},
			}},
		},
		Baseline:         "history",
		ReportCurrencies: []string{"USD", "RUB"},
		HistoryCurrency:  "USD",
	}}
}
