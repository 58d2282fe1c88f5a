package rates

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"floorwatch/models"

	"github.com/shopspring/decimal"
)

var defaultCoinGeckoConfig = HTTPConfig{
	BaseURL: "https://api.coingecko.com/api/v3",
	Timeout: defaultHTTPTimeout,
}

// DefaultCoinIDs maps currency codes to CoinGecko coin ids
var DefaultCoinIDs = map[models.CurrencyCode]string{
	models.TON:  "the-open-network",
	models.USDT: "tether",
	"BTC":       "bitcoin",
	"ETH":       "ethereum",
}

// CoinGecko quotes crypto assets against fiat via /simple/price
type CoinGecko struct {
	cfg   HTTPConfig
	coins map[models.CurrencyCode]string
	http  httpFetcher
}

// NewCoinGecko creates the adapter. A nil cfg uses the public endpoint and a
// nil coins map uses DefaultCoinIDs.
func NewCoinGecko(cfg *HTTPConfig, coins map[models.CurrencyCode]string) (*CoinGecko, error) {
	c := HTTPConfig{}
	if cfg != nil {
		c = *cfg
	}
	if err := validateConfig(&c, defaultCoinGeckoConfig); err != nil {
		return nil, err
	}
	if coins == nil {
		coins = DefaultCoinIDs
	}
	return &CoinGecko{cfg: c, coins: coins, http: newHTTPFetcher(c.Timeout)}, nil
}

func (p *CoinGecko) Name() string { return "coingecko" }

// Fetch supports coin->fiat directly and fiat->coin by inversion
func (p *CoinGecko) Fetch(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error) {
	if id, ok := p.coins[from]; ok {
		return p.price(ctx, id, to)
	}
	if id, ok := p.coins[to]; ok {
		rate, err := p.price(ctx, id, from)
		if err != nil {
			return decimal.Zero, err
		}
		return invert(rate)
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrUnsupportedPair, from, to)
}

func (p *CoinGecko) price(ctx context.Context, coinID string, vs models.CurrencyCode) (decimal.Decimal, error) {
	vsKey := strings.ToLower(string(vs))
	q := url.Values{}
	q.Set("ids", coinID)
	q.Set("vs_currencies", vsKey)

	var prices map[string]map[string]decimal.Decimal
	if err := p.http.getJSON(ctx, p.cfg.BaseURL+"/simple/price?"+q.Encode(), &prices); err != nil {
		return decimal.Zero, err
	}
	if err := validate.Var(prices, "required,min=1"); err != nil {
		return decimal.Zero, fmt.Errorf("invalid response payload: %w", err)
	}

	rate, ok := prices[coinID][vsKey]
	if !ok {
		return decimal.Zero, fmt.Errorf("price for %s in %s not found in response", coinID, vsKey)
	}
	return rate, nil
}
