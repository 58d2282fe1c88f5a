package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"floorwatch/config"
	"floorwatch/database"
	"floorwatch/handlers"
	"floorwatch/middleware"
	"floorwatch/models"
	"floorwatch/rates"
	"floorwatch/report"
	"floorwatch/repository"
	"floorwatch/scheduler"
	"floorwatch/scraper"
	"floorwatch/services"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var startedAt = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// History store
	store, closeStore, err := openHistoryStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	defer closeStore()

	// Rate providers
	chain, err := buildRateChain(cfg.Rates)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure rate providers")
	}
	log.Info().Strs("providers", chain.Providers()).Msg("rate providers configured")

	// Browser
	renderer, err := scraper.NewRodRenderer(scraper.RendererConfig{
		ControlURL:  cfg.Browser.ControlURL,
		Bin:         cfg.Browser.Bin,
		Headless:    cfg.Browser.Headless,
		Stealth:     cfg.Browser.Stealth,
		LoadTimeout: cfg.Browser.LoadTimeout,
		WaitTimeout: cfg.Browser.WaitTimeout,
		SettleDelay: cfg.Browser.SettleDelay,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start browser")
	}
	defer renderer.Close()

	trackers, err := services.NewTrackers(cfg.Trackers)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile trackers")
	}

	discovery := services.NewDiscoveryService(renderer, chain, store, cfg.Discovery.RenderTimeout)
	formatter := report.NewFormatter()

	refresher := scheduler.NewRefresher(cfg.Scheduler.Schedule, discovery, trackers, formatter, cfg.Server.RequestTimeout, false)
	if err := refresher.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start refresher")
	}
	defer refresher.Stop()

	h := handlers.NewHandlers(trackers, discovery, formatter, store, cfg.Discovery.Locales, cfg.Server.RequestTimeout)
	defer h.Close()

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.Server.RateLimit))
	h.Register(r)
	r.HandleFunc("/metrics", getMetrics(len(trackers))).Methods("GET")

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           middleware.CORSMiddleware(cfg.Server.CORSOrigins)(r),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Int("trackers", len(trackers)).Msg("server starting")
		for _, t := range trackers {
			log.Info().Str("item", t.Key).Str("path", "/api/v1/floor/"+t.Key).Msg("tracker available")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

// openHistoryStore returns the configured store and its close function
func openHistoryStore(ctx context.Context, cfg config.DatabaseConfig) (repository.HistoryStore, func(), error) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("using in-memory price history, baselines reset on restart")
		return repository.NewMemoryHistoryStore(), func() {}, nil
	}

	db, err := database.Open(ctx, database.Config{Driver: database.Dialect(cfg.Driver), URL: cfg.URL})
	if err != nil {
		return nil, nil, err
	}
	if err := db.CreateTables(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
	return repository.NewHistoryRepository(db), closeFn, nil
}

// buildRateChain creates providers in configured order
func buildRateChain(cfg config.RatesConfig) (*rates.Chain, error) {
	var providers []rates.Provider
	for _, name := range cfg.Providers {
		p, err := newProvider(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		providers = append(providers, p)
	}
	return rates.NewChain(cfg.Timeout, providers...), nil
}

func newProvider(name string, cfg config.RatesConfig) (rates.Provider, error) {
	httpCfg := func(baseURL string) *rates.HTTPConfig {
		return &rates.HTTPConfig{BaseURL: baseURL, Timeout: cfg.Timeout}
	}

	switch name {
	case "coingecko":
		return rates.NewCoinGecko(httpCfg(cfg.CoinGeckoURL), nil)
	case "binance":
		return rates.NewBinance(httpCfg(cfg.BinanceURL), nil)
	case "exchangerate-api":
		return rates.NewExchangeRateAPI(httpCfg(cfg.ExchangeRateURL))
	case "cbr":
		return rates.NewCBR(httpCfg(cfg.CBRURL))
	case "cross":
		first, err := rates.NewBinance(httpCfg(cfg.BinanceURL), nil)
		if err != nil {
			return nil, err
		}
		second, err := rates.NewExchangeRateAPI(httpCfg(cfg.ExchangeRateURL))
		if err != nil {
			return nil, err
		}
		return &rates.Cross{First: first, Second: second, Pivot: models.NormalizeCurrency(cfg.CrossPivot)}, nil
	case "static":
		return rates.ParseStatic(cfg.Static)
	default:
		return nil, fmt.Errorf("unknown rate provider %q", name)
	}
}

// Metrics struct for basic monitoring
type Metrics struct {
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime"`
	Goroutines  int       `json:"goroutines"`
	MemoryUsage string    `json:"memory_usage"`
	Trackers    int       `json:"trackers"`
}

func getMetrics(trackers int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		metrics := Metrics{
			Timestamp:   time.Now(),
			Uptime:      time.Since(startedAt).Round(time.Second).String(),
			Goroutines:  runtime.NumGoroutine(),
			MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Trackers:    trackers,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(metrics); err != nil {
			log.Error().Err(err).Msg("failed to encode metrics")
		}
	}
}
