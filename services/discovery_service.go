package services

import (
	"context"
	"sync"
	"time"

	"floorwatch/models"
	"floorwatch/repository"
	"floorwatch/scraper"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RateSource converts amounts between currencies
type RateSource interface {
	GetRate(ctx context.Context, from, to models.CurrencyCode) (*models.ConversionRate, error)
	Convert(ctx context.Context, amount decimal.Decimal, from models.CurrencyCode, targets []models.CurrencyCode) []models.Conversion
}

// DiscoveryService runs one discovery pipeline per request. It holds no
// per-request state; the history store is the only shared resource.
type DiscoveryService struct {
	renderer      scraper.Renderer
	rates         RateSource
	history       repository.HistoryStore
	renderTimeout time.Duration
	storeTimeout  time.Duration
	now           func() time.Time
}

const (
	defaultRenderTimeout = 60 * time.Second
	defaultStoreTimeout  = 5 * time.Second
)

func NewDiscoveryService(renderer scraper.Renderer, rates RateSource, history repository.HistoryStore, renderTimeout time.Duration) *DiscoveryService {
	if renderTimeout <= 0 {
		renderTimeout = defaultRenderTimeout
	}
	return &DiscoveryService{
		renderer:      renderer,
		rates:         rates,
		history:       history,
		renderTimeout: renderTimeout,
		storeTimeout:  defaultStoreTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Discover locates the current floor listing, extracts its price, resolves
// the baseline, converts and records the observation. Only NO_LISTING and
// EXTRACTION_FAILED end the request with an error.
func (s *DiscoveryService) Discover(ctx context.Context, t *Tracker) (*models.DiscoveryResult, error) {
	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Str("item", t.Key).Logger()
	started := time.Now()

	current, err := s.observe(ctx, t, t.ListingURL, t.ListingLocator, models.ViewCurrent)
	if err != nil {
		logger.Warn().Err(err).Msg("discovery failed")
		return nil, err
	}
	logger.Info().Str("amount", current.Amount().String()).Str("currency", current.Currency().String()).
		Str("listing", current.ListingURL()).Msg("current price extracted")

	baseline := s.baseline(ctx, t, logger)

	conversions := s.rates.Convert(ctx, current.Amount(), current.Currency(), t.ReportCurrencies)
	for _, c := range conversions {
		if !c.Available {
			logger.Warn().Str("reason", string(models.ReasonRateUnavailable)).Str("currency", c.Currency.String()).Msg("conversion unavailable")
		}
	}

	result := &models.DiscoveryResult{
		RequestID:   requestID,
		ItemKey:     t.Key,
		Title:       t.Title,
		Current:     current,
		Baseline:    baseline,
		Conversions: conversions,
	}
	if baseline != nil {
		if amount, ok := s.amountIn(ctx, current, baseline.Currency, conversions); ok {
			result.Delta = models.ComputeDelta(amount, baseline.Amount, baseline.Currency)
		} else {
			logger.Warn().Str("currency", baseline.Currency.String()).Msg("baseline currency not convertible, delta omitted")
		}
	}

	s.record(ctx, t, current, conversions, logger)

	logger.Info().Dur("took", time.Since(started)).Bool("baseline", baseline != nil).Msg("discovery completed")
	return result, nil
}

// observe runs LOCATE_LISTING and EXTRACT on a fresh page session
func (s *DiscoveryService) observe(ctx context.Context, t *Tracker, listingURL string, loc scraper.Locator, view models.SourceView) (*models.PriceObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	page, err := s.renderer.Open(ctx, listingURL)
	if err != nil {
		return nil, models.NewFailure(models.ReasonNoListing, err, "failed to load listing view %s", listingURL)
	}
	defer page.Close()

	ref, err := page.FindFirst(ctx, loc)
	if err != nil {
		return nil, models.NewFailure(models.ReasonNoListing, err, "no item matching %s on %s", loc.CSS, listingURL)
	}
	if ref.Href == "" {
		return nil, models.NewFailure(models.ReasonNoListing, nil, "item matching %s on %s has no link", loc.CSS, listingURL)
	}

	if err := page.Navigate(ctx, ref.Href); err != nil {
		return nil, models.NewFailure(models.ReasonExtractionFailed, err, "failed to open detail page %s", ref.Href)
	}
	if t.DetailReady.CSS != "" {
		if err := page.WaitFor(ctx, t.DetailReady); err != nil {
			log.Debug().Err(err).Str("item", t.Key).Str("url", ref.Href).Msg("detail page not ready, extracting anyway")
		}
	}

	doc, err := page.Snapshot(ctx)
	if err != nil {
		return nil, models.NewFailure(models.ReasonExtractionFailed, err, "failed to snapshot %s", ref.Href)
	}

	listing := scraper.ListingInfo{URL: ref.Href, Label: scraper.ListingLabel(ref.Href)}
	obs, err := scraper.ExtractPrice(doc, t.Extraction, view, listing, s.now())
	if err != nil {
		return nil, models.NewFailure(models.ReasonExtractionFailed, err, "no price on %s", ref.Href)
	}
	return obs, nil
}

// baseline resolves the comparison price. Any failure yields nil.
func (s *DiscoveryService) baseline(ctx context.Context, t *Tracker, logger zerolog.Logger) *models.Baseline {
	switch t.Baseline {
	case BaselineSold:
		sold, err := s.observe(ctx, t, t.SoldListingURL, t.SoldListingLocator, models.ViewSold)
		if err != nil {
			logger.Warn().Err(err).Msg("sold baseline unavailable")
			return nil
		}
		return models.BaselineFromObservation(sold)

	case BaselineHistory:
		storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()

		rec, err := s.history.GetLast(storeCtx, t.Key)
		if err != nil {
			logger.Warn().Err(models.NewFailure(models.ReasonHistoryUnavailable, err, "get last %s", t.Key)).Msg("history baseline unavailable")
			return nil
		}
		return models.BaselineFromRecord(rec)
	}
	return nil
}

// amountIn expresses the current price in currency, reusing a conversion
// already fetched for the report when there is one.
func (s *DiscoveryService) amountIn(ctx context.Context, current *models.PriceObservation, currency models.CurrencyCode, conversions []models.Conversion) (decimal.Decimal, bool) {
	if currency == current.Currency() {
		return current.Amount(), true
	}
	for _, c := range conversions {
		if c.Currency == currency {
			return c.Amount, c.Available
		}
	}
	rate, err := s.rates.GetRate(ctx, current.Currency(), currency)
	if err != nil {
		return decimal.Zero, false
	}
	return rate.Convert(current.Amount()), true
}

func (s *DiscoveryService) record(ctx context.Context, t *Tracker, current *models.PriceObservation, conversions []models.Conversion, logger zerolog.Logger) {
	amount, currency := current.Amount(), current.Currency()
	if t.HistoryCurrency != "" && t.HistoryCurrency != currency {
		if converted, ok := s.amountIn(ctx, current, t.HistoryCurrency, conversions); ok {
			amount, currency = converted, t.HistoryCurrency
		} else {
			logger.Warn().Str("currency", t.HistoryCurrency.String()).Msg("recording native price, history currency not convertible")
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.history.Record(storeCtx, t.Key, amount, currency, current.ObservedAt()); err != nil {
		logger.Error().Err(models.NewFailure(models.ReasonHistoryUnavailable, err, "record %s", t.Key)).Msg("failed to record price")
	}
}

// Outcome is the result of one tracker in a DiscoverAll run
type Outcome struct {
	Tracker *Tracker
	Result  *models.DiscoveryResult
	Err     error
}

// DiscoverAll runs every tracker concurrently and returns outcomes in tracker order
func (s *DiscoveryService) DiscoverAll(ctx context.Context, trackers []*Tracker) []Outcome {
	outcomes := make([]Outcome, len(trackers))
	var wg sync.WaitGroup
	for i, t := range trackers {
		wg.Add(1)
		go func(i int, t *Tracker) {
			defer wg.Done()
			res, err := s.Discover(ctx, t)
			outcomes[i] = Outcome{Tracker: t, Result: res, Err: err}
		}(i, t)
	}
	wg.Wait()
	return outcomes
}
