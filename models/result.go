package models

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// BaselineSource tells where a baseline came from
type BaselineSource string

const (
	BaselineFromHistory BaselineSource = "history"
	BaselineFromSold    BaselineSource = "sold"
)

// Baseline is the prior price the current observation is compared with
type Baseline struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       CurrencyCode    `json:"currency"`
	ObservedAt     time.Time       `json:"observed_at"`
	Source         BaselineSource  `json:"source"`
	RawDisplayText string          `json:"raw_display_text,omitempty"`
}

// BaselineFromObservation builds a baseline out of a sold-view observation
func BaselineFromObservation(o *PriceObservation) *Baseline {
	if o == nil {
		return nil
	}
	return &Baseline{
		Amount:         o.Amount(),
		Currency:       o.Currency(),
		ObservedAt:     o.ObservedAt(),
		Source:         BaselineFromSold,
		RawDisplayText: o.RawText(),
	}
}

// BaselineFromRecord builds a baseline out of a stored history record
func BaselineFromRecord(r *HistoryRecord) *Baseline {
	if r == nil {
		return nil
	}
	return &Baseline{
		Amount:     r.LastAmount,
		Currency:   r.LastCurrency,
		ObservedAt: r.RecordedAt,
		Source:     BaselineFromHistory,
	}
}

// Delta is the change of the current price against the baseline
type Delta struct {
	Amount   decimal.Decimal `json:"amount"`
	Percent  decimal.Decimal `json:"percent"`
	Currency CurrencyCode    `json:"currency"`
}

// Rising reports whether the delta renders with the "rise" phrase (zero included)
func (d *Delta) Rising() bool {
	return !d.Amount.IsNegative()
}

var hundred = decimal.NewFromInt(100)

// ComputeDelta returns nil when the baseline is zero or negative, so an absent
// baseline can never turn into a 0% or infinite change.
func ComputeDelta(current, baseline decimal.Decimal, currency CurrencyCode) *Delta {
	if !baseline.IsPositive() {
		return nil
	}
	diff := current.Sub(baseline)
	return &Delta{
		Amount:   diff,
		Percent:  diff.Div(baseline).Mul(hundred).Round(2),
		Currency: currency,
	}
}

// Conversion is the current price expressed in one report currency
type Conversion struct {
	Currency  CurrencyCode    `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Rate      *ConversionRate `json:"rate,omitempty"`
	Available bool            `json:"available"`
}

// DiscoveryResult is the outcome of one successful discovery cycle. It lives
// only for the duration of a request.
type DiscoveryResult struct {
	RequestID   string            `json:"request_id"`
	ItemKey     string            `json:"item_key"`
	Title       string            `json:"title"`
	Current     *PriceObservation `json:"current"`
	Baseline    *Baseline         `json:"baseline,omitempty"`
	Delta       *Delta            `json:"delta,omitempty"`
	Conversions []Conversion      `json:"conversions,omitempty"`
}

func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
