package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// NumberStyle selects which separators a page uses
type NumberStyle string

const (
	// StyleDot is 1,234.56 (also 1 234.56 and 1'234.56)
	StyleDot NumberStyle = "dot"
	// StyleComma is 1.234,56 (also 1 234,56)
	StyleComma NumberStyle = "comma"
)

// LocaleParser turns displayed price text into a decimal amount
type LocaleParser struct {
	style   NumberStyle
	pattern *regexp.Regexp
	// plain is the ungrouped form tried when a grouped match runs into more digits
	plain *regexp.Regexp
	strip *strings.Replacer
}

// thousands separators seen on rendered pages: comma or dot (by style), plain,
// no-break, narrow no-break and thin spaces, apostrophe
const spaceSeps = ` \x{00A0}\x{202F}\x{2009}'`

// NewLocaleParser creates a parser for the given number style
func NewLocaleParser(style NumberStyle) *LocaleParser {
	switch style {
	case StyleComma:
		return &LocaleParser{
			style:   StyleComma,
			pattern: regexp.MustCompile(`(?:\d{1,3}(?:[.` + spaceSeps + `]\d{3})+|\d+)(?:,\d+)?`),
			plain:   regexp.MustCompile(`^\d+(?:,\d+)?`),
			strip:   strings.NewReplacer(".", "", " ", "", "\u00a0", "", "\u202f", "", "\u2009", "", "'", "", ",", "."),
		}
	default:
		return &LocaleParser{
			style:   StyleDot,
			pattern: regexp.MustCompile(`(?:\d{1,3}(?:[,` + spaceSeps + `]\d{3})+|\d+)(?:\.\d+)?`),
			plain:   regexp.MustCompile(`^\d+(?:\.\d+)?`),
			strip:   strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "", "\u2009", "", "'", ""),
		}
	}
}

// ParsePrice returns the first number found in text and the matched substring.
// Units may follow the digits directly ("2,643TON"). Text without a number is
// an error, never a zero amount.
func (lp *LocaleParser) ParsePrice(text string) (decimal.Decimal, string, error) {
	match := lp.find(text)
	if match == "" {
		return decimal.Zero, "", fmt.Errorf("no valid price pattern found in: %q", text)
	}

	value, err := decimal.NewFromString(lp.strip.Replace(match))
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("failed to parse price %q: %w", match, err)
	}
	return value, match, nil
}

// find returns the first number that is not part of a longer digit run
func (lp *LocaleParser) find(text string) string {
	for _, loc := range lp.pattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if isDigitAt(text, start-1) {
			continue
		}
		if !isDigitAt(text, end) {
			return text[start:end]
		}
		// "888 0123" is not 888,012 followed by a 3
		if m := lp.plain.FindStringIndex(text[start:]); m != nil && !isDigitAt(text, start+m[1]) {
			return text[start : start+m[1]]
		}
	}
	return ""
}

func isDigitAt(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}
