package scraper

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"floorwatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailPage = `<html><head><title>+888 0001234</title></head>
<body>
<script>var price = "9,999 TON";</script>
<div class="tm-section-header">+888 0001234</div>
<div class="table-cell-value tm-value icon-before icon-ton">2,643</div>
<div class="tm-price"><span>Price</span> <span class="ton">2,643 TON</span></div>
<div class="table-cell-desc">$ ~ $14,270.55</div>
<div class="footer">Fee 5% TON</div>
</body></html>`

var detailListing = ListingInfo{URL: "https://fragment.com/number/8880001234", Label: "8880001234"}

func mustDoc(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := NewDocument(raw, detailListing.URL)
	require.NoError(t, err)
	return doc
}

func tonSpec(strategies ...Strategy) *ExtractionSpec {
	return &ExtractionSpec{
		Currency:   models.TON,
		Parser:     NewLocaleParser(StyleDot),
		Strategies: strategies,
		Quotes: []QuoteSpec{{
			Currency:   models.USD,
			Strategies: []Strategy{TextMatch{Pattern: regexp.MustCompile(`\$`), Require: regexp.MustCompile(`~`)}},
		}},
	}
}

func TestExtractPrice_TextMatch(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	spec := tonSpec(TextMatch{Pattern: regexp.MustCompile(`TON`), Require: regexp.MustCompile(`\d`)})

	obs, err := ExtractPrice(mustDoc(t, detailPage), spec, models.ViewCurrent, detailListing, now)
	require.NoError(t, err)

	assert.Equal(t, "2643", obs.Amount().String())
	assert.Equal(t, models.TON, obs.Currency())
	assert.Equal(t, "2,643 TON", obs.RawText())
	assert.Equal(t, models.ViewCurrent, obs.View())
	assert.Equal(t, now, obs.ObservedAt())
	assert.Equal(t, "8880001234", obs.Label())
	assert.Equal(t, []models.DisplayQuote{{Currency: models.USD, RawText: "$ ~ $14,270.55"}}, obs.Quotes())
}

func TestExtractPrice_ScriptTextIgnored(t *testing.T) {
	spec := tonSpec(PageRegex{Pattern: regexp.MustCompile(`([\d,]+) TON`)})

	obs, err := ExtractPrice(mustDoc(t, detailPage), spec, models.ViewCurrent, detailListing, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2643", obs.Amount().String())
	assert.Equal(t, "2,643", obs.RawText())
}

func TestExtractPrice_FirstMatchingStrategyWins(t *testing.T) {
	spec := tonSpec(
		Selector{CSS: ".does-not-exist"},
		Selector{CSS: ".icon-ton"},
		TextMatch{Pattern: regexp.MustCompile(`Fee`)},
	)

	obs, err := ExtractPrice(mustDoc(t, detailPage), spec, models.ViewSold, detailListing, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2,643", obs.RawText())
	assert.Equal(t, models.ViewSold, obs.View())
}

func TestExtractPrice_RequireFiltersCandidates(t *testing.T) {
	// "Fee 5% TON" matches the pattern first but has no thousands group
	spec := tonSpec(TextMatch{Pattern: regexp.MustCompile(`TON`), Require: regexp.MustCompile(`\d,\d{3}`)})
	doc := mustDoc(t, `<body><p>Fee 5% TON</p><p>1,200 TON</p></body>`)

	obs, err := ExtractPrice(doc, spec, models.ViewCurrent, detailListing, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "1200", obs.Amount().String())
}

func TestExtractPrice_WinnerWithoutNumber(t *testing.T) {
	spec := tonSpec(
		TextMatch{Pattern: regexp.MustCompile(`TON`)},
		Selector{CSS: ".icon-ton"},
	)
	doc := mustDoc(t, `<body><p>Price in TON</p><div class="icon-ton">2,643</div></body>`)

	obs, err := ExtractPrice(doc, spec, models.ViewCurrent, detailListing, time.Now())
	assert.Nil(t, obs)
	assert.True(t, errors.Is(err, models.ErrNoPriceFound))
}

func TestExtractPrice_NoStrategyMatched(t *testing.T) {
	spec := tonSpec(Selector{CSS: ".price"}, TextMatch{Pattern: regexp.MustCompile(`TON`)})

	obs, err := ExtractPrice(mustDoc(t, `<body><p>Sold out</p></body>`), spec, models.ViewCurrent, detailListing, time.Now())
	assert.Nil(t, obs)
	f, ok := models.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonNoPriceFound, f.Reason)
}

func TestExtractPrice_AdjacentElements(t *testing.T) {
	doc := mustDoc(t, `<body><h1>+888 0001 2345</h1><div class="price"><span>2,643</span><span class="icon">TON</span></div></body>`)

	assert.Equal(t, "+888 0001 2345 2,643 TON", doc.Text())
	assert.Equal(t, []string{"2,643 TON"}, doc.Select(".price"))

	obs, err := ExtractPrice(doc, tonSpec(Selector{CSS: ".price"}), models.ViewCurrent, detailListing, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2643", obs.Amount().String())
	assert.Equal(t, "2,643 TON", obs.RawText())
}

func TestExtractPrice_GluedUnit(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"grouped", `<div class="price">2,643TON</div>`, "2643"},
		{"decimals", `<div class="price">1,234.5TON</div>`, "1234.5"},
		{"ungrouped", `<div class="price">2643TON</div>`, "2643"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := ExtractPrice(mustDoc(t, `<body>`+tt.html+`</body>`), tonSpec(Selector{CSS: ".price"}), models.ViewCurrent, detailListing, time.Now())
			require.NoError(t, err)
			assert.Equal(t, tt.want, obs.Amount().String())
		})
	}
}

func TestExtractionConfig_Compile(t *testing.T) {
	cfg := ExtractionConfig{
		Currency:    "ton",
		NumberStyle: "dot",
		Strategies: []StrategyConfig{
			{Kind: "text", Pattern: "TON", Require: `\d`},
			{Kind: "selector", CSS: ".icon-ton"},
		},
		Quotes: []QuoteConfig{{Currency: "usd", Strategies: []StrategyConfig{{Kind: "text", Pattern: `\$`, Require: "~"}}}},
	}

	spec, err := cfg.Compile()
	require.NoError(t, err)
	assert.Equal(t, models.TON, spec.Currency)
	require.Len(t, spec.Strategies, 2)
	assert.Equal(t, "text:TON", spec.Strategies[0].Name())
	assert.Equal(t, "selector:.icon-ton", spec.Strategies[1].Name())
	require.Len(t, spec.Quotes, 1)
	assert.Equal(t, models.USD, spec.Quotes[0].Currency)

	_, err = ExtractionConfig{Currency: "TON", Strategies: []StrategyConfig{{Kind: "regex", Pattern: "("}}}.Compile()
	assert.Error(t, err)

	_, err = ExtractionConfig{Currency: "TON", Strategies: []StrategyConfig{{Kind: "xpath", Pattern: "//a"}}}.Compile()
	assert.Error(t, err)
}

func TestStaticRenderer(t *testing.T) {
	ctx := context.Background()
	r := &StaticRenderer{Pages: map[string]string{
		"https://fragment.com/numbers?filter=sale": `<body>
			<a href="/about">About</a>
			<a href="/number/8880001234" class="table-cell">+888 0001 234</a>
			<a href="/number/8880009999" class="table-cell">+888 0009 999</a>
		</body>`,
		"https://fragment.com/number/8880001234": detailPage,
	}}

	page, err := r.Open(ctx, "https://fragment.com/numbers?filter=sale")
	require.NoError(t, err)
	defer page.Close()

	ref, err := page.FindFirst(ctx, Locator{CSS: `a[href*="/number/888"]`})
	require.NoError(t, err)
	assert.Equal(t, "https://fragment.com/number/8880001234", ref.Href)
	assert.Equal(t, "+888 0001 234", ref.Text)
	assert.Equal(t, "8880001234", ListingLabel(ref.Href))

	_, err = page.FindFirst(ctx, Locator{CSS: "a", TextRegex: "nothing"})
	assert.ErrorIs(t, err, ErrElementNotFound)

	require.NoError(t, page.Navigate(ctx, ref.Href))
	require.NoError(t, page.WaitFor(ctx, Locator{CSS: "div", TextRegex: "TON"}))

	doc, err := page.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+888 0001234", doc.Title())
	assert.NotContains(t, doc.Text(), "9,999")

	_, err = r.Open(ctx, "https://fragment.com/missing")
	assert.Error(t, err)
}
