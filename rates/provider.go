// Package rates converts marketplace prices into report currencies through an
// ordered chain of exchange-rate providers.
package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"floorwatch/models"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Provider is one exchange-rate source. Fetch returns how many units of `to`
// one unit of `from` buys.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error)
}

var (
	// ErrUnsupportedPair is returned when a provider cannot quote the pair at all
	ErrUnsupportedPair = errors.New("currency pair not supported")
	// ErrInvalidConfig is returned by adapter constructors
	ErrInvalidConfig = errors.New("invalid provider configuration")
)

// HTTPConfig holds the endpoint settings shared by the HTTP adapters
type HTTPConfig struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gte=0"`
}

const defaultHTTPTimeout = 10 * time.Second

var validate = validator.New()

// validateConfig fills zero fields from defaults and validates the result
func validateConfig(cfg *HTTPConfig, defaults HTTPConfig) error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// httpFetcher performs GET requests and decodes validated JSON payloads
type httpFetcher struct {
	client *http.Client
}

func newHTTPFetcher(timeout time.Duration) httpFetcher {
	return httpFetcher{client: &http.Client{Timeout: timeout}}
}

func (f httpFetcher) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// getStruct decodes into a struct and validates its tags
func (f httpFetcher) getStruct(ctx context.Context, url string, out interface{}) error {
	if err := f.getJSON(ctx, url, out); err != nil {
		return err
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("invalid response payload: %w", err)
	}
	return nil
}

// invert returns 1/rate, or an error for a non-positive rate
func invert(rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("cannot invert non-positive rate %s", rate)
	}
	return decimal.NewFromInt(1).DivRound(rate, 16), nil
}
