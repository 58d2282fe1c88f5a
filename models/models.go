package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyCode identifies a currency or marketplace unit (TON, USD, CNY, ...)
type CurrencyCode string

const (
	TON  CurrencyCode = "TON"
	USD  CurrencyCode = "USD"
	USDT CurrencyCode = "USDT"
	CNY  CurrencyCode = "CNY"
	RUB  CurrencyCode = "RUB"
	EUR  CurrencyCode = "EUR"
)

// NormalizeCurrency upper-cases and trims a configured currency code
func NormalizeCurrency(code string) CurrencyCode {
	return CurrencyCode(strings.ToUpper(strings.TrimSpace(code)))
}

func (c CurrencyCode) String() string {
	return string(c)
}

// SourceView tells which listing view an observation came from
type SourceView string

const (
	ViewCurrent SourceView = "CURRENT"
	ViewSold    SourceView = "SOLD"
)

// DisplayQuote is a price approximation the marketplace itself shows next to
// the native price (e.g. "~ $5,432"). Kept verbatim.
type DisplayQuote struct {
	Currency CurrencyCode `json:"currency"`
	RawText  string       `json:"raw_text"`
}

// PriceObservation is one extracted price. Fields are unexported so the value
// cannot change after construction.
type PriceObservation struct {
	amount     decimal.Decimal
	currency   CurrencyCode
	rawText    string
	observedAt time.Time
	view       SourceView
	listingURL string
	label      string
	quotes     []DisplayQuote
}

// ObservationOption sets optional observation fields at construction time
type ObservationOption func(*PriceObservation)

// WithListing attaches the listing detail URL and its short label
func WithListing(url, label string) ObservationOption {
	return func(o *PriceObservation) {
		o.listingURL = url
		o.label = label
	}
}

// WithQuotes attaches site-displayed approximations
func WithQuotes(quotes ...DisplayQuote) ObservationOption {
	return func(o *PriceObservation) {
		o.quotes = append([]DisplayQuote(nil), quotes...)
	}
}

// NewPriceObservation creates an observation, rejecting negative amounts
func NewPriceObservation(amount decimal.Decimal, currency CurrencyCode, rawText string, view SourceView, observedAt time.Time, opts ...ObservationOption) (*PriceObservation, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("invalid observation: negative amount %s", amount)
	}
	if currency == "" {
		return nil, fmt.Errorf("invalid observation: empty currency")
	}

	o := &PriceObservation{
		amount:     amount,
		currency:   currency,
		rawText:    rawText,
		observedAt: observedAt,
		view:       view,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *PriceObservation) Amount() decimal.Decimal { return o.amount }
func (o *PriceObservation) Currency() CurrencyCode { return o.currency }
func (o *PriceObservation) RawText() string { return o.rawText }
func (o *PriceObservation) ObservedAt() time.Time { return o.observedAt }
func (o *PriceObservation) View() SourceView { return o.view }
func (o *PriceObservation) ListingURL() string { return o.listingURL }
func (o *PriceObservation) Label() string { return o.label }

// Quotes returns a copy of the site-displayed approximations
func (o *PriceObservation) Quotes() []DisplayQuote {
	return append([]DisplayQuote(nil), o.quotes...)
}

// MarshalJSON exposes the observation to the HTTP layer
func (o *PriceObservation) MarshalJSON() ([]byte, error) {
	return marshalJSON(struct {
		Amount     decimal.Decimal `json:"amount"`
		Currency   CurrencyCode    `json:"currency"`
		RawText    string          `json:"raw_text"`
		ObservedAt time.Time       `json:"observed_at"`
		View       SourceView      `json:"view"`
		ListingURL string          `json:"listing_url,omitempty"`
		Label      string          `json:"label,omitempty"`
		Quotes     []DisplayQuote  `json:"quotes,omitempty"`
	}{o.amount, o.currency, o.rawText, o.observedAt, o.view, o.listingURL, o.label, o.quotes})
}

// ConversionRate is a single fetched rate. It is never persisted.
type ConversionRate struct {
	From      CurrencyCode    `json:"from"`
	To        CurrencyCode    `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetched_at"`
	Provider  string          `json:"provider"`
}

// Valid reports whether the rate can be used for conversion
func (r *ConversionRate) Valid() bool {
	return r != nil && r.Rate.IsPositive()
}

// Convert applies the rate to an amount
func (r *ConversionRate) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Rate)
}

// HistoryRecord is the last observed price for a tracked item
type HistoryRecord struct {
	ItemKey      string          `json:"item_key" db:"item_key"`
	LastAmount   decimal.Decimal `json:"last_amount" db:"last_amount"`
	LastCurrency CurrencyCode    `json:"last_currency" db:"last_currency"`
	RecordedAt   time.Time       `json:"recorded_at" db:"recorded_at"`
}

// HistoryEntry is one row of the append-only observation log
type HistoryEntry struct {
	ID         int64           `json:"id" db:"id"`
	ItemKey    string          `json:"item_key" db:"item_key"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Currency   CurrencyCode    `json:"currency" db:"currency"`
	RecordedAt time.Time       `json:"recorded_at" db:"recorded_at"`
}
