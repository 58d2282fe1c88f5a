package rates

import (
	"context"
	"fmt"
	"net/url"

	"floorwatch/models"

	"github.com/shopspring/decimal"
)

var defaultBinanceConfig = HTTPConfig{
	BaseURL: "https://api.binance.com",
	Timeout: defaultHTTPTimeout,
}

// DefaultQuoteAliases maps fiat codes to the stablecoin Binance lists them as
var DefaultQuoteAliases = map[models.CurrencyCode]models.CurrencyCode{
	models.USD: models.USDT,
}

// ticker is the /api/v3/ticker/price payload
//
//	{"symbol": "TONUSDT", "price": "5.43210000"}
type ticker struct {
	Symbol string `json:"symbol" validate:"required"`
	Price  string `json:"price" validate:"required,numeric"`
}

// Binance quotes spot symbols via the public ticker endpoint
type Binance struct {
	cfg     HTTPConfig
	aliases map[models.CurrencyCode]models.CurrencyCode
	http    httpFetcher
}

// NewBinance creates the adapter. A nil aliases map uses DefaultQuoteAliases.
func NewBinance(cfg *HTTPConfig, aliases map[models.CurrencyCode]models.CurrencyCode) (*Binance, error) {
	c := HTTPConfig{}
	if cfg != nil {
		c = *cfg
	}
	if err := validateConfig(&c, defaultBinanceConfig); err != nil {
		return nil, err
	}
	if aliases == nil {
		aliases = DefaultQuoteAliases
	}
	return &Binance{cfg: c, aliases: aliases, http: newHTTPFetcher(c.Timeout)}, nil
}

func (p *Binance) Name() string { return "binance" }

// Symbol builds the exchange symbol for a pair (TON, USD -> TONUSDT)
func (p *Binance) Symbol(from, to models.CurrencyCode) string {
	return string(p.alias(from)) + string(p.alias(to))
}

func (p *Binance) alias(c models.CurrencyCode) models.CurrencyCode {
	if a, ok := p.aliases[c]; ok {
		return a
	}
	return c
}

func (p *Binance) Fetch(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error) {
	if p.alias(from) == p.alias(to) {
		return decimal.NewFromInt(1), nil
	}

	symbol := p.Symbol(from, to)
	var t ticker
	if err := p.http.getStruct(ctx, p.cfg.BaseURL+"/api/v3/ticker/price?symbol="+url.QueryEscape(symbol), &t); err != nil {
		return decimal.Zero, fmt.Errorf("ticker %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid ticker price %q: %w", t.Price, err)
	}
	return price, nil
}
