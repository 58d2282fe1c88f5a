package scraper

import (
	"fmt"
	"regexp"
	"time"

	"floorwatch/models"
)

// Strategy is one self-contained way of locating a price on a page.
// Match returns the first acceptable candidate text in document order.
type Strategy interface {
	Name() string
	Match(doc *Document) (string, bool)
}

// TextMatch selects elements whose own text matches Pattern
type TextMatch struct {
	Pattern *regexp.Regexp
	Require *regexp.Regexp
}

func (s TextMatch) Name() string { return "text:" + s.Pattern.String() }

func (s TextMatch) Match(doc *Document) (string, bool) {
	return firstAccepted(doc.ElementsWithOwnText(s.Pattern), s.Require)
}

// Selector selects elements by a CSS structural locator
type Selector struct {
	CSS     string
	Require *regexp.Regexp
}

func (s Selector) Name() string { return "selector:" + s.CSS }

func (s Selector) Match(doc *Document) (string, bool) {
	return firstAccepted(doc.Select(s.CSS), s.Require)
}

// PageRegex scans the full page text. When the pattern has a capture group
// the first group is the candidate, otherwise the whole match.
type PageRegex struct {
	Pattern *regexp.Regexp
	Require *regexp.Regexp
}

func (s PageRegex) Name() string { return "regex:" + s.Pattern.String() }

func (s PageRegex) Match(doc *Document) (string, bool) {
	var candidates []string
	for _, m := range s.Pattern.FindAllStringSubmatch(doc.Text(), -1) {
		if len(m) > 1 && m[1] != "" {
			candidates = append(candidates, collapse(m[1]))
		} else {
			candidates = append(candidates, collapse(m[0]))
		}
	}
	return firstAccepted(candidates, s.Require)
}

func firstAccepted(candidates []string, require *regexp.Regexp) (string, bool) {
	for _, c := range candidates {
		if require == nil || require.MatchString(c) {
			return c, true
		}
	}
	return "", false
}

// QuoteSpec locates a price approximation the site displays in another currency
type QuoteSpec struct {
	Currency   models.CurrencyCode
	Strategies []Strategy
}

// ExtractionSpec is the ordered set of strategies for one kind of detail page
type ExtractionSpec struct {
	Currency   models.CurrencyCode
	Parser     *LocaleParser
	Strategies []Strategy
	Quotes     []QuoteSpec
}

// ListingInfo identifies the listing a detail page belongs to
type ListingInfo struct {
	URL   string
	Label string
}

// ExtractPrice applies the strategies in declared order. The first strategy
// with an acceptable candidate decides the outcome; strategies are never
// merged. A winning candidate without a number is NO_PRICE_FOUND.
func ExtractPrice(doc *Document, spec *ExtractionSpec, view models.SourceView, listing ListingInfo, now time.Time) (*models.PriceObservation, error) {
	parser := spec.Parser
	if parser == nil {
		parser = NewLocaleParser(StyleDot)
	}

	for _, strategy := range spec.Strategies {
		text, ok := strategy.Match(doc)
		if !ok {
			continue
		}

		amount, _, err := parser.ParsePrice(text)
		if err != nil {
			return nil, models.NewFailure(models.ReasonNoPriceFound, err, "strategy %s matched %q on %s", strategy.Name(), text, doc.URL())
		}

		return models.NewPriceObservation(amount, spec.Currency, text, view, now,
			models.WithListing(listing.URL, listing.Label),
			models.WithQuotes(extractQuotes(doc, spec.Quotes)...))
	}

	return nil, models.NewFailure(models.ReasonNoPriceFound, nil, "none of %d strategies matched on %s", len(spec.Strategies), doc.URL())
}

func extractQuotes(doc *Document, specs []QuoteSpec) []models.DisplayQuote {
	var quotes []models.DisplayQuote
	for _, q := range specs {
		for _, strategy := range q.Strategies {
			if text, ok := strategy.Match(doc); ok {
				quotes = append(quotes, models.DisplayQuote{Currency: q.Currency, RawText: text})
				break
			}
		}
	}
	return quotes
}

// StrategyConfig is the configuration form of a Strategy
type StrategyConfig struct {
	Kind    string `yaml:"kind" json:"kind" validate:"required,oneof=text selector regex"`
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	CSS     string `yaml:"css,omitempty" json:"css,omitempty"`
	Require string `yaml:"require,omitempty" json:"require,omitempty"`
}

// QuoteConfig is the configuration form of a QuoteSpec
type QuoteConfig struct {
	Currency   string           `yaml:"currency" json:"currency" validate:"required"`
	Strategies []StrategyConfig `yaml:"strategies" json:"strategies" validate:"required,min=1,dive"`
}

// ExtractionConfig is the configuration form of an ExtractionSpec
type ExtractionConfig struct {
	Currency    string           `yaml:"currency" json:"currency" validate:"required"`
	NumberStyle string           `yaml:"number_style,omitempty" json:"number_style,omitempty" validate:"omitempty,oneof=dot comma"`
	Strategies  []StrategyConfig `yaml:"strategies" json:"strategies" validate:"required,min=1,dive"`
	Quotes      []QuoteConfig    `yaml:"quotes,omitempty" json:"quotes,omitempty" validate:"dive"`
}

// Compile turns a strategy config into a Strategy
func (c StrategyConfig) Compile() (Strategy, error) {
	var require *regexp.Regexp
	if c.Require != "" {
		re, err := regexp.Compile(c.Require)
		if err != nil {
			return nil, fmt.Errorf("invalid require pattern %q: %w", c.Require, err)
		}
		require = re
	}

	switch c.Kind {
	case "text", "regex":
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", c.Kind, c.Pattern, err)
		}
		if c.Kind == "text" {
			return TextMatch{Pattern: re, Require: require}, nil
		}
		return PageRegex{Pattern: re, Require: require}, nil
	case "selector":
		if c.CSS == "" {
			return nil, fmt.Errorf("selector strategy without css")
		}
		return Selector{CSS: c.CSS, Require: require}, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", c.Kind)
	}
}

func compileStrategies(configs []StrategyConfig) ([]Strategy, error) {
	strategies := make([]Strategy, 0, len(configs))
	for i, c := range configs {
		s, err := c.Compile()
		if err != nil {
			return nil, fmt.Errorf("strategy %d: %w", i, err)
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

// Compile builds the runtime ExtractionSpec
func (c ExtractionConfig) Compile() (*ExtractionSpec, error) {
	strategies, err := compileStrategies(c.Strategies)
	if err != nil {
		return nil, err
	}

	spec := &ExtractionSpec{
		Currency:   models.NormalizeCurrency(c.Currency),
		Parser:     NewLocaleParser(NumberStyle(c.NumberStyle)),
		Strategies: strategies,
	}

	for _, q := range c.Quotes {
		qs, err := compileStrategies(q.Strategies)
		if err != nil {
			return nil, fmt.Errorf("quote %s: %w", q.Currency, err)
		}
		spec.Quotes = append(spec.Quotes, QuoteSpec{Currency: models.NormalizeCurrency(q.Currency), Strategies: qs})
	}
	return spec, nil
}
