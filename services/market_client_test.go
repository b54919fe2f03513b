package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quotesBody = `{
	"data": {
		"1": {
			"id": 1,
			"name": "Bitcoin",
			"symbol": "BTC",
			"cmc_rank": 1,
			"circulating_supply": 19000000,
			"quote": {
				"USD": {
					"price": 43250.5,
					"percent_change_1h": 0.2,
					"percent_change_24h": -1.4,
					"percent_change_7d": 3.1,
					"market_cap": 850000000000,
					"volume_24h": 21000000000
				}
			}
		}
	}
}`

func TestQuotesByID_ParsesAndCaches(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		assert.Equal(t, "test-key", r.Header.Get("X-CMC_PRO_API_KEY"))
		assert.Equal(t, "/v2/cryptocurrency/quotes/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(quotesBody))
	}))
	defer server.Close()

	client := NewMarketDataClient(server.URL, "test-key")

	quotes, err := client.QuotesByID(context.Background(), []int64{1})
	require.NoError(t, err)
	require.Contains(t, quotes, int64(1))
	assert.Equal(t, "Bitcoin", quotes[1].Name)
	assert.InDelta(t, 43250.5, quotes[1].USDQuote().Price, 1e-9)
	assert.InDelta(t, -1.4, quotes[1].USDQuote().PercentChange24h, 1e-9)

	// second lookup must come from the cache
	quotes, err = client.QuotesByID(context.Background(), []int64{1})
	require.NoError(t, err)
	require.Contains(t, quotes, int64(1))
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestQuotesByID_AbsentFieldsDecodeToZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"9":{"id":9,"name":"Mystery","symbol":"MYS","quote":{"USD":{"price":2}}}}}`))
	}))
	defer server.Close()

	client := NewMarketDataClient(server.URL, "test-key")

	quotes, err := client.QuotesByID(context.Background(), []int64{9})
	require.NoError(t, err)
	require.Contains(t, quotes, int64(9))

	quote := quotes[9].USDQuote()
	assert.InDelta(t, 2.0, quote.Price, 1e-9)
	assert.Zero(t, quote.MarketCap)
	assert.Zero(t, quote.PercentChange7d)
	assert.Zero(t, quotes[9].CirculatingSupply)
}

func TestPricesByID_DegradesOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewMarketDataClient(server.URL, "test-key")

	prices := client.PricesByID(context.Background(), []int64{1, 2})

	assert.Empty(t, prices, "upstream failure must yield no prices, not an error")
}

func TestPricesByID_ServesCachedEntriesWhenUpstreamFails(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(quotesBody))
	}))
	defer server.Close()

	client := NewMarketDataClient(server.URL, "test-key")

	prices := client.PricesByID(context.Background(), []int64{1})
	require.Contains(t, prices, int64(1))

	fail.Store(true)
	prices = client.PricesByID(context.Background(), []int64{1, 2})

	assert.Contains(t, prices, int64(1), "cached quote survives an upstream outage")
	assert.NotContains(t, prices, int64(2))
}

func TestTopListings_ParsesListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cryptocurrency/listings/latest", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"), "out-of-range limit falls back to 100")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"Bitcoin","symbol":"BTC","cmc_rank":1,"quote":{"USD":{"price":43250.5}}}]}`))
	}))
	defer server.Close()

	client := NewMarketDataClient(server.URL, "test-key")

	coins, err := client.TopListings(context.Background(), -5)
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, "BTC", coins[0].Symbol)
	assert.Equal(t, 1, coins[0].CmcRank)
}

func TestSearchBySymbol_RequiresSymbol(t *testing.T) {
	client := NewMarketDataClient("http://unused", "test-key")

	_, err := client.SearchBySymbol(context.Background(), "   ")

	assert.Error(t, err)
}

func TestSearchBySymbol_UppercasesAndFlattens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ETH", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"ETH":[{"id":1027,"name":"Ethereum","symbol":"ETH","quote":{"USD":{"price":2280.1}}}]}}`))
	}))
	defer server.Close()

	client := NewMarketDataClient(server.URL, "test-key")

	coins, err := client.SearchBySymbol(context.Background(), " eth ")
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, int64(1027), coins[0].ID)
}
