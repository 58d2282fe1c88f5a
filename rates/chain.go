package rates

import (
	"context"
	"fmt"
	"time"

	"floorwatch/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const defaultProviderTimeout = 5 * time.Second

// Chain asks providers in order until one returns a usable rate. Each
// provider gets a single attempt with its own deadline.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	now       func() time.Time
}

// NewChain builds a chain. A non-positive timeout uses the default.
func NewChain(timeout time.Duration, providers ...Provider) *Chain {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Chain{
		providers: providers,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Providers returns the provider names in query order
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// GetRate returns the first valid rate for from->to. When every provider
// fails the result is a RATE_UNAVAILABLE failure wrapping the last error.
func (c *Chain) GetRate(ctx context.Context, from, to models.CurrencyCode) (*models.ConversionRate, error) {
	if from == to {
		return &models.ConversionRate{From: from, To: to, Rate: decimal.NewFromInt(1), FetchedAt: c.now(), Provider: "identity"}, nil
	}

	var lastErr error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		rate, err := c.fetch(ctx, p, from, to)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Str("pair", pair(from, to)).Msg("rate provider failed, trying next")
			lastErr = err
			continue
		}

		log.Debug().Str("provider", p.Name()).Str("pair", pair(from, to)).Str("rate", rate.Rate.String()).Msg("rate fetched")
		return rate, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return nil, models.NewFailure(models.ReasonRateUnavailable, lastErr, "no provider could quote %s", pair(from, to))
}

func (c *Chain) fetch(ctx context.Context, p Provider, from, to models.CurrencyCode) (*models.ConversionRate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value, err := p.Fetch(ctx, from, to)
	if err != nil {
		return nil, err
	}

	rate := &models.ConversionRate{From: from, To: to, Rate: value, FetchedAt: c.now(), Provider: p.Name()}
	if !rate.Valid() {
		return nil, fmt.Errorf("invalid rate %s", value)
	}
	return rate, nil
}

// Convert expresses amount in each target currency. Targets equal to the
// source currency are skipped; unavailable rates are marked, not fatal.
func (c *Chain) Convert(ctx context.Context, amount decimal.Decimal, from models.CurrencyCode, targets []models.CurrencyCode) []models.Conversion {
	conversions := make([]models.Conversion, 0, len(targets))
	for _, to := range targets {
		if to == from {
			continue
		}
		rate, err := c.GetRate(ctx, from, to)
		if err != nil {
			conversions = append(conversions, models.Conversion{Currency: to, Available: false})
			continue
		}
		conversions = append(conversions, models.Conversion{
			Currency:  to,
			Amount:    rate.Convert(amount),
			Rate:      rate,
			Available: true,
		})
	}
	return conversions
}

func pair(from, to models.CurrencyCode) string {
	return string(from) + "/" + string(to)
}
