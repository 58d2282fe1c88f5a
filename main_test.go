package main

import (
	"context"
	"testing"
	"time"

	"floorwatch/config"
	"floorwatch/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRateChain(t *testing.T) {
	chain, err := buildRateChain(config.RatesConfig{
		Providers:  []string{"binance", "coingecko", "exchangerate-api", "cross", "cbr", "static"},
		Timeout:    time.Second,
		Static:     "TON/USD=5.4",
		CrossPivot: "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"binance",
		"coingecko",
		"exchangerate-api",
		"cross(binance>exchangerate-api via USD)",
		"cbr",
		"static",
	}, chain.Providers())
}

func TestBuildRateChain_Errors(t *testing.T) {
	_, err := buildRateChain(config.RatesConfig{Providers: []string{"carrier-pigeon"}, Timeout: time.Second})
	assert.Error(t, err)

	_, err = buildRateChain(config.RatesConfig{Providers: []string{"binance"}, Timeout: time.Second, BinanceURL: "not a url"})
	assert.Error(t, err)

	_, err = buildRateChain(config.RatesConfig{Providers: []string{"static"}, Timeout: time.Second, Static: "garbage"})
	assert.Error(t, err)
}

func TestOpenHistoryStore(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := openHistoryStore(ctx, config.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &repository.MemoryHistoryStore{}, store)

	store, closeDB, err := openHistoryStore(ctx, config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"})
	require.NoError(t, err)
	defer closeDB()
	assert.IsType(t, &repository.HistoryRepository{}, store)
}
