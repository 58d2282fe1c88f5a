package rates

import (
	"context"
	"fmt"

	"floorwatch/models"

	"github.com/shopspring/decimal"
)

// Cross composes two providers through a pivot currency, e.g. TON->USD from
// an exchange and USD->CNY from a fiat feed.
type Cross struct {
	First  Provider
	Second Provider
	Pivot  models.CurrencyCode
}

func (p *Cross) Name() string {
	return fmt.Sprintf("cross(%s>%s via %s)", p.First.Name(), p.Second.Name(), p.Pivot)
}

func (p *Cross) Fetch(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, error) {
	if from == p.Pivot || to == p.Pivot {
		return decimal.Zero, fmt.Errorf("%w: %s/%s already involves pivot %s", ErrUnsupportedPair, from, to, p.Pivot)
	}

	a, err := p.First.Fetch(ctx, from, p.Pivot)
	if err != nil {
		return decimal.Zero, fmt.Errorf("first leg %s/%s: %w", from, p.Pivot, err)
	}
	b, err := p.Second.Fetch(ctx, p.Pivot, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("second leg %s/%s: %w", p.Pivot, to, err)
	}
	return a.Mul(b), nil
}
