// Package report renders discovery results and failures as localized text.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"floorwatch/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// RenderedMessage is one locale rendering of a result
type RenderedMessage struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

var supported = []language.Tag{
	language.English, // fallback, keep first
	language.Russian,
	language.Chinese,
}

// Formatter renders results with per-locale templates. It is safe for
// concurrent use.
type Formatter struct {
	matcher   language.Matcher
	templates map[string]*template.Template
}

func NewFormatter() *Formatter {
	f := &Formatter{
		matcher:   language.NewMatcher(supported),
		templates: make(map[string]*template.Template, len(resultTemplates)),
	}
	for locale, text := range resultTemplates {
		f.templates[locale] = template.Must(template.New(locale).Parse(text))
	}
	return f
}

// Locale maps a requested tag such as "en-US" onto a shipped locale
func (f *Formatter) Locale(requested string) string {
	tag, err := language.Parse(requested)
	if err != nil {
		return "en"
	}
	_, idx, conf := f.matcher.Match(tag)
	if conf == language.No {
		return "en"
	}
	base, _ := supported[idx].Base()
	return base.String()
}

func (f *Formatter) locales(requested []string) []string {
	if len(requested) == 0 {
		return []string{"en"}
	}
	seen := make(map[string]bool, len(requested))
	var out []string
	for _, r := range requested {
		l := f.Locale(r)
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

type conversionView struct {
	Currency  string
	Amount    string
	Available bool
}

type deltaView struct {
	Rising   bool
	Amount   string
	Percent  string
	Source   string
	Baseline string
}

type resultView struct {
	Title       string
	Label       string
	Price       string
	Quotes      []string
	Conversions []conversionView
	Delta       *deltaView
	Link        string
}

// Format renders one message per distinct requested locale. The delta is
// taken from the result as computed; only number formatting is localized.
func (f *Formatter) Format(result *models.DiscoveryResult, locales []string) []RenderedMessage {
	messages := make([]RenderedMessage, 0, len(locales))
	for _, locale := range f.locales(locales) {
		p := message.NewPrinter(language.Make(locale))
		view := buildView(p, result)

		var buf bytes.Buffer
		if err := f.templates[locale].Execute(&buf, view); err != nil {
			// templates are static; an execution error is a programming bug
			panic(fmt.Sprintf("report: template %s: %v", locale, err))
		}
		messages = append(messages, RenderedMessage{Locale: locale, Text: strings.TrimSpace(buf.String())})
	}
	return messages
}

func buildView(p *message.Printer, r *models.DiscoveryResult) resultView {
	cur := r.Current
	v := resultView{
		Title: r.Title,
		Label: displayLabel(cur.Label()),
		Price: formatMoney(p, cur.Amount(), cur.Currency()),
		Link:  cur.ListingURL(),
	}
	for _, q := range cur.Quotes() {
		v.Quotes = append(v.Quotes, q.RawText)
	}
	for _, c := range r.Conversions {
		cv := conversionView{Currency: c.Currency.String(), Available: c.Available}
		if c.Available {
			cv.Amount = formatAmount(p, c.Amount)
		}
		v.Conversions = append(v.Conversions, cv)
	}
	if r.Delta != nil && r.Baseline != nil {
		v.Delta = &deltaView{
			Rising:   r.Delta.Rising(),
			Amount:   signed(r.Delta.Rising(), formatMoney(p, r.Delta.Amount, r.Delta.Currency)),
			Percent:  signed(r.Delta.Rising(), formatPercent(p, r.Delta.Percent)),
			Source:   string(r.Baseline.Source),
			Baseline: formatMoney(p, r.Baseline.Amount, r.Baseline.Currency),
		}
	}
	return v
}

func formatAmount(p *message.Printer, d decimal.Decimal) string {
	f, _ := d.Float64()
	return p.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
}

func formatMoney(p *message.Printer, d decimal.Decimal, c models.CurrencyCode) string {
	return formatAmount(p, d) + " " + c.String()
}

func formatPercent(p *message.Printer, d decimal.Decimal) string {
	f, _ := d.Float64()
	return p.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func signed(rising bool, s string) string {
	if rising {
		return "+" + s
	}
	return s
}

// displayLabel prefixes phone-number labels with "+"
func displayLabel(label string) string {
	if label == "" {
		return ""
	}
	for _, r := range label {
		if r < '0' || r > '9' {
			return label
		}
	}
	return "+" + label
}
