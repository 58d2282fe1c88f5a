package rates

import (
	"context"
	"fmt"
	"net/url"

	"floorwatch/models"

	"github.com/shopspring/decimal"
)

var defaultExchangeRateAPIConfig = HTTPConfig{
	BaseURL: "https://open.er-api.com/v6",
	Timeout: defaultHTTPTimeout,
}

// latestRates is the open.er-api.com /latest/{base} payload
type latestRates struct {
	Result   string                     `json:"result" validate:"required,eq=success"`
	BaseCode string                     `json:"base_code" validate:"required"`
	Rates    map[string]decimal.Decimal `json:"rates" validate:"required,min=1"`
}

// ExchangeRateAPI quotes fiat pairs from the keyless open.er-api.com feed
type ExchangeRateAPI struct {
	cfg  HTTPConfig
	http httpFetcher
}

func NewExchangeRateAPI(cfg *HTTPConfig) (*ExchangeRateAPI, error) {
	c := HTTPConfig{}
	if cfg != nil {
		c = *cfg
	}
	if err := validateConfig(&c, defaultExchangeRateAPIConfig); err != nil {
		return nil, err
	}
	return &ExchangeRateAPI{cfg: c, http: newHTTPFetcher(c.Timeout)}, nil
}

func (p *ExchangeRateAPI) Name() string { return "exchangerate-api" }

func (p *ExchangeRateAPI) Fetch(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error) {
	var resp latestRates
	if err := p.http.getStruct(ctx, p.cfg.BaseURL+"/latest/"+url.PathEscape(string(from)), &resp); err != nil {
		return decimal.Zero, err
	}

	rate, ok := resp.Rates[string(to)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: currency %s not found in response", ErrUnsupportedPair, to)
	}
	return rate, nil
}
