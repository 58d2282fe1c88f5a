package rates

import (
	"context"
	"fmt"
	"strings"

	"floorwatch/models"

	"github.com/shopspring/decimal"
)

// Static serves fixed rates keyed "FROM/TO". Inverse pairs are derived.
type Static struct {
	rates map[string]decimal.Decimal
}

func NewStatic(rates map[string]decimal.Decimal) *Static {
	normalized := make(map[string]decimal.Decimal, len(rates))
	for k, v := range rates {
		normalized[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return &Static{rates: normalized}
}

// ParseStatic reads "TON/USD=5.4,USD/CNY=7.2" into a Static provider
func ParseStatic(spec string) (*Static, error) {
	rates := make(map[string]decimal.Decimal)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 || !strings.Contains(kv[0], "/") {
			return nil, fmt.Errorf("invalid static rate %q", part)
		}
		v, err := decimal.NewFromString(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid static rate %q: %w", part, err)
		}
		rates[kv[0]] = v
	}
	return NewStatic(rates), nil
}

func (p *Static) Name() string { return "static" }

func (p *Static) Fetch(_ context.Context, from, to models.CurrencyCode) (decimal.Decimal, error) {
	if v, ok := p.rates[pair(from, to)]; ok {
		return v, nil
	}
	if v, ok := p.rates[pair(to, from)]; ok {
		return invert(v)
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedPair, pair(from, to))
}
