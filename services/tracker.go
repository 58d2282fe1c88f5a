package services

import (
	"fmt"

	"floorwatch/config"
	"floorwatch/models"
	"floorwatch/scraper"
)

// BaselineMode selects where the comparison price comes from
type BaselineMode string

const (
	BaselineHistory BaselineMode = "history"
	BaselineSold    BaselineMode = "sold"
	BaselineNone    BaselineMode = "none"
)

// Tracker is one configured floor-price item
type Tracker struct {
	Key                string
	Title              string
	ListingURL         string
	ListingLocator     scraper.Locator
	SoldListingURL     string
	SoldListingLocator scraper.Locator
	// DetailReady is awaited on the detail page before the snapshot; empty CSS skips the wait
	DetailReady      scraper.Locator
	Extraction       *scraper.ExtractionSpec
	Baseline         BaselineMode
	ReportCurrencies []models.CurrencyCode
	// HistoryCurrency is the currency recorded prices are stored in; empty keeps the native one
	HistoryCurrency models.CurrencyCode
}

// NewTracker compiles a tracker from its configuration
func NewTracker(cfg config.TrackerConfig) (*Tracker, error) {
	spec, err := cfg.Extraction.Compile()
	if err != nil {
		return nil, fmt.Errorf("tracker %s: %w", cfg.Key, err)
	}

	t := &Tracker{
		Key:             cfg.Key,
		Title:           cfg.Title,
		ListingURL:      cfg.ListingURL,
		ListingLocator:  cfg.ListingLocator,
		SoldListingURL:  cfg.SoldListingURL,
		Extraction:      spec,
		Baseline:        BaselineMode(cfg.Baseline),
		HistoryCurrency: models.NormalizeCurrency(cfg.HistoryCurrency),
	}
	if t.Title == "" {
		t.Title = cfg.Key
	}
	if t.Baseline == "" {
		t.Baseline = BaselineHistory
	}
	if t.Baseline == BaselineSold && t.SoldListingURL == "" {
		return nil, fmt.Errorf("tracker %s: sold baseline without sold_listing_url", cfg.Key)
	}

	t.SoldListingLocator = t.ListingLocator
	if cfg.SoldListingLocator != nil {
		t.SoldListingLocator = *cfg.SoldListingLocator
	}
	if cfg.DetailReady != nil {
		t.DetailReady = *cfg.DetailReady
	}
	for _, c := range cfg.ReportCurrencies {
		t.ReportCurrencies = append(t.ReportCurrencies, models.NormalizeCurrency(c))
	}
	return t, nil
}

// NewTrackers compiles every configured tracker, rejecting duplicate keys
func NewTrackers(cfgs []config.TrackerConfig) ([]*Tracker, error) {
	seen := make(map[string]bool, len(cfgs))
	trackers := make([]*Tracker, 0, len(cfgs))
	for _, c := range cfgs {
		if seen[c.Key] {
			return nil, fmt.Errorf("duplicate tracker key %q", c.Key)
		}
		seen[c.Key] = true

		t, err := NewTracker(c)
		if err != nil {
			return nil, err
		}
		trackers = append(trackers, t)
	}
	return trackers, nil
}
