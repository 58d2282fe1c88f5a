package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"floorwatch/models"
	"floorwatch/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRACKERS_FILE", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("RATE_PROVIDERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"en", "ru"}, cfg.Discovery.Locales)
	assert.Equal(t, 5*time.Second, cfg.Rates.Timeout)
	require.Len(t, cfg.Trackers, 1)
	assert.Equal(t, "888-floor", cfg.Trackers[0].Key)
	assert.Equal(t, "history", cfg.Trackers[0].Baseline)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("RATE_PROVIDERS", "static, binance")
	t.Setenv("RATE_TIMEOUT", "750ms")
	t.Setenv("LOCALES", "zh")
	t.Setenv("BROWSER_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, []string{"static", "binance"}, cfg.Rates.Providers)
	assert.Equal(t, 750*time.Millisecond, cfg.Rates.Timeout)
	assert.Equal(t, []string{"zh"}, cfg.Discovery.Locales)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown driver", "DATABASE_DRIVER", "mysql"},
		{"unknown provider", "RATE_PROVIDERS", "binance,yahoo"},
		{"bad log level", "LOG_LEVEL", "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestValidate_PostgresRequiresURL(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: "8080", RequestTimeout: time.Second},
		Database:  DatabaseConfig{Driver: "postgres"},
		Rates:     RatesConfig{Providers: []string{"static"}, Timeout: time.Second},
		Discovery: DiscoveryConfig{RenderTimeout: time.Second, Locales: []string{"en"}},
		Trackers:  DefaultTrackers(),
	}
	assert.Error(t, cfg.Validate())

	cfg.Database.URL = "postgres://localhost/floor"
	assert.NoError(t, cfg.Validate())
}

const trackersYAML = `
trackers:
  - key: usernames-floor
    title: Usernames
    listing_url: https://fragment.com/?sort=price_asc&filter=sale
    listing_locator:
      css: a.tm-row-link
    baseline: sold
    sold_listing_url: https://fragment.com/?sort=price_desc&filter=sold
    detail_ready:
      css: .tm-section-bid-info
    extraction:
      currency: TON
      strategies:
        - kind: selector
          css: .tm-section-bid-info .icon-ton
        - kind: regex
          pattern: '([\d,]+)\s*TON'
    report_currencies: [USD, CNY]
`

func TestLoadTrackers_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trackers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(trackersYAML), 0o600))

	trackers, err := LoadTrackers(path)
	require.NoError(t, err)
	require.Len(t, trackers, 1)

	tr := trackers[0]
	assert.Equal(t, "usernames-floor", tr.Key)
	assert.Equal(t, "sold", tr.Baseline)
	assert.Equal(t, "a.tm-row-link", tr.ListingLocator.CSS)
	require.NotNil(t, tr.DetailReady)
	assert.Equal(t, ".tm-section-bid-info", tr.DetailReady.CSS)
	require.Len(t, tr.Extraction.Strategies, 2)
	assert.Equal(t, `([\d,]+)\s*TON`, tr.Extraction.Strategies[1].Pattern)
	assert.Equal(t, []string{"USD", "CNY"}, tr.ReportCurrencies)

	require.NoError(t, validate.Var(trackers, "dive"))
}

func TestParseTrackers_Errors(t *testing.T) {
	_, err := ParseTrackers([]byte("trackers: []"))
	assert.Error(t, err)

	_, err = ParseTrackers([]byte("trackers: [: bad"))
	assert.Error(t, err)

	_, err = LoadTrackers(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultTrackers_HeadingNumberIsNotThePrice(t *testing.T) {
	spec, err := DefaultTrackers()[0].Extraction.Compile()
	require.NoError(t, err)

	pages := []string{
		`<body><h1>+888 0001 2345</h1><div class="price"><span>2,643</span><span class="icon">TON</span></div></body>`,
		`<body><h1>+888 0001 2345</h1><div class="price">2,643TON</div></body>`,
		`<body><h1>+888 0001 2345</h1><div class="price">2643 TON</div></body>`,
	}
	for _, page := range pages {
		doc, err := scraper.NewDocument(page, "https://fragment.com/number/88800012345")
		require.NoError(t, err)

		obs, err := scraper.ExtractPrice(doc, spec, models.ViewCurrent, scraper.ListingInfo{}, time.Now())
		require.NoError(t, err, page)
		assert.Equal(t, "2643", obs.Amount().String(), page)
	}
}
