package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"floorwatch/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler http.HandlerFunc) *HTTPConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &HTTPConfig{BaseURL: srv.URL}
}

func TestCoinGecko_Fetch(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "the-open-network", r.URL.Query().Get("ids"))
		switch r.URL.Query().Get("vs_currencies") {
		case "usd":
			w.Write([]byte(`{"the-open-network":{"usd":5.4}}`))
		default:
			w.Write([]byte(`{"the-open-network":{}}`))
		}
	})

	p, err := NewCoinGecko(cfg, nil)
	require.NoError(t, err)

	rate, err := p.Fetch(context.Background(), models.TON, models.USD)
	require.NoError(t, err)
	assert.Equal(t, "5.4", rate.String())

	inverse, err := p.Fetch(context.Background(), models.USD, models.TON)
	require.NoError(t, err)
	assert.True(t, inverse.Mul(rate).Round(8).Equal(decimal.NewFromInt(1)))

	_, err = p.Fetch(context.Background(), models.TON, models.CNY)
	assert.Error(t, err)

	_, err = p.Fetch(context.Background(), models.USD, models.CNY)
	assert.ErrorIs(t, err, ErrUnsupportedPair)
}

func TestBinance_Fetch(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		if r.URL.Query().Get("symbol") != "TONUSDT" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}
		w.Write([]byte(`{"symbol":"TONUSDT","price":"5.43210000"}`))
	})

	p, err := NewBinance(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "TONUSDT", p.Symbol(models.TON, models.USD))

	rate, err := p.Fetch(context.Background(), models.TON, models.USD)
	require.NoError(t, err)
	assert.Equal(t, "5.4321", rate.String())

	_, err = p.Fetch(context.Background(), models.TON, models.RUB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestBinance_InvalidPayload(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"TONUSDT","price":"n/a"}`))
	})
	p, err := NewBinance(cfg, nil)
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), models.TON, models.USD)
	assert.ErrorContains(t, err, "invalid response payload")
}

func TestExchangeRateAPI_Fetch(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/USD", r.URL.Path)
		w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"USD":1,"CNY":7.2,"RUB":81.5}}`))
	})
	p, err := NewExchangeRateAPI(cfg)
	require.NoError(t, err)

	rate, err := p.Fetch(context.Background(), models.USD, models.CNY)
	require.NoError(t, err)
	assert.Equal(t, "7.2", rate.String())

	_, err = p.Fetch(context.Background(), models.USD, "XYZ")
	assert.ErrorIs(t, err, ErrUnsupportedPair)
}

func TestExchangeRateAPI_ErrorResult(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"error","error-type":"unsupported-code"}`))
	})
	p, err := NewExchangeRateAPI(cfg)
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), "XYZ", models.USD)
	assert.Error(t, err)
}

func TestCBR_Fetch(t *testing.T) {
	cfg := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/daily_json.js", r.URL.Path)
		w.Write([]byte(`{"Date":"2026-10-17T11:30:00+03:00","Valute":{
			"USD":{"CharCode":"USD","Nominal":1,"Value":80},
			"CNY":{"CharCode":"CNY","Nominal":10,"Value":112}}}`))
	})
	p, err := NewCBR(cfg)
	require.NoError(t, err)

	tests := []struct {
		from, to models.CurrencyCode
		want     string
	}{
		{models.USD, models.RUB, "80"},
		{models.RUB, models.USD, "0.0125"},
		{models.USD, models.CNY, "7.1428571428571429"},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.to), func(t *testing.T) {
			rate, err := p.Fetch(context.Background(), tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rate.String())
		})
	}

	_, err = p.Fetch(context.Background(), models.TON, models.RUB)
	assert.ErrorIs(t, err, ErrUnsupportedPair)
}

func TestCross_Fetch(t *testing.T) {
	cross := &Cross{
		First:  NewStatic(map[string]decimal.Decimal{"TON/USD": decimal.RequireFromString("5.4")}),
		Second: NewStatic(map[string]decimal.Decimal{"USD/CNY": decimal.RequireFromString("7.2")}),
		Pivot:  models.USD,
	}

	rate, err := cross.Fetch(context.Background(), models.TON, models.CNY)
	require.NoError(t, err)
	assert.Equal(t, "38.88", rate.String())

	_, err = cross.Fetch(context.Background(), models.TON, models.USD)
	assert.ErrorIs(t, err, ErrUnsupportedPair)
	assert.Equal(t, "cross(static>static via USD)", cross.Name())
}

func TestParseStatic(t *testing.T) {
	p, err := ParseStatic("ton/usd=5.4, USD/CNY=7.2")
	require.NoError(t, err)

	rate, err := p.Fetch(context.Background(), models.TON, models.USD)
	require.NoError(t, err)
	assert.Equal(t, "5.4", rate.String())

	_, err = ParseStatic("TONUSD=5")
	assert.Error(t, err)
	_, err = ParseStatic("TON/USD=abc")
	assert.Error(t, err)
}

func TestNewAdapters_InvalidConfig(t *testing.T) {
	_, err := NewExchangeRateAPI(&HTTPConfig{BaseURL: "not a url"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
