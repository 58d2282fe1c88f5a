package rates

import (
	"context"
	"fmt"

	"floorwatch/models"

	"github.com/shopspring/decimal"
)

var defaultCBRConfig = HTTPConfig{
	BaseURL: "https://www.cbr-xml-daily.ru",
	Timeout: defaultHTTPTimeout,
}

// cbrDaily is the daily_json.js payload; every Value is RUB per Nominal units
type cbrDaily struct {
	Date   string              `json:"Date" validate:"required"`
	Valute map[string]cbrValue `json:"Valute" validate:"required,min=1,dive"`
}

type cbrValue struct {
	CharCode string          `json:"CharCode" validate:"required"`
	Nominal  int64           `json:"Nominal" validate:"gt=0"`
	Value    decimal.Decimal `json:"Value"`
}

// CBR derives fiat crosses from the Central Bank of Russia daily rates
type CBR struct {
	cfg  HTTPConfig
	http httpFetcher
}

func NewCBR(cfg *HTTPConfig) (*CBR, error) {
	c := HTTPConfig{}
	if cfg != nil {
		c = *cfg
	}
	if err := validateConfig(&c, defaultCBRConfig); err != nil {
		return nil, err
	}
	return &CBR{cfg: c, http: newHTTPFetcher(c.Timeout)}, nil
}

func (p *CBR) Name() string { return "cbr" }

func (p *CBR) Fetch(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error) {
	var daily cbrDaily
	if err := p.http.getStruct(ctx, p.cfg.BaseURL+"/daily_json.js", &daily); err != nil {
		return decimal.Zero, err
	}

	fromRUB, err := daily.rubPer(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRUB, err := daily.rubPer(to)
	if err != nil {
		return decimal.Zero, err
	}
	if !toRUB.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive RUB rate for %s", to)
	}
	return fromRUB.DivRound(toRUB, 16), nil
}

func (d *cbrDaily) rubPer(c models.CurrencyCode) (decimal.Decimal, error) {
	if c == models.RUB {
		return decimal.NewFromInt(1), nil
	}
	v, ok := d.Valute[string(c)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s not published by CBR", ErrUnsupportedPair, c)
	}
	return v.Value.Div(decimal.NewFromInt(v.Nominal)), nil
}
