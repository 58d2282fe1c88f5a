package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocaleParser_ParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		style NumberStyle
		text  string
		want  string
		match string
	}{
		{"plain", StyleDot, "2643", "2643", "2643"},
		{"thousands comma", StyleDot, "2,643 TON", "2643", "2,643"},
		{"decimal", StyleDot, "~ $14,270.55", "14270.55", "14,270.55"},
		{"nbsp separators", StyleDot, "1 234 567.8", "1234567.8", "1 234 567.8"},
		{"thin space", StyleDot, "12 500", "12500", "12 500"},
		{"phone number first", StyleDot, "888 0123", "888", "888"},
		{"glued unit", StyleDot, "2,643TON", "2643", "2,643"},
		{"glued unit with decimals", StyleDot, "1,234.5TON", "1234.5", "1,234.5"},
		{"glued unit ungrouped", StyleDot, "2643TON", "2643", "2643"},
		{"glued unit comma style", StyleComma, "1.234,56EUR", "1234.56", "1.234,56"},
		{"trailing dot", StyleDot, "2,643.", "2643", "2,643"},
		{"comma style", StyleComma, "1.234,56 €", "1234.56", "1.234,56"},
		{"comma style spaces", StyleComma, "187 000,5 ₽", "187000.5", "187 000,5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, match, err := NewLocaleParser(tt.style).ParsePrice(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, value.String())
			assert.Equal(t, tt.match, match)
		})
	}
}

func TestLocaleParser_NoNumber(t *testing.T) {
	for _, text := range []string{"", "TON", "Sold out", "~ $"} {
		_, _, err := NewLocaleParser(StyleDot).ParsePrice(text)
		assert.Error(t, err, text)
	}
}
