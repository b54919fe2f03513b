// portfolio-tracker-service/services/market_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portfolio-tracker-service/utils"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// MarketDataClient proxies a CoinMarketCap-style quote API. Quote lookups are
// cached for a few minutes and rate limited to stay inside the upstream quota.
type MarketDataClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	cache   *gocache.Cache
	limiter *rate.Limiter
}

// Quote carries the USD quote fields the tracker consumes. Fields absent
// upstream decode to zero — missing data is never a fatal error here.
type Quote struct {
	Price            float64 `json:"price"`
	PercentChange1h  float64 `json:"percent_change_1h"`
	PercentChange24h float64 `json:"percent_change_24h"`
	PercentChange7d  float64 `json:"percent_change_7d"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`
}

// MarketCoin is one listing entry from the quote API.
type MarketCoin struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	Symbol            string           `json:"symbol"`
	CmcRank           int              `json:"cmc_rank"`
	CirculatingSupply float64          `json:"circulating_supply"`
	Quote             map[string]Quote `json:"quote"`
}

// USDQuote returns the USD quote, zero-valued when the API omitted it.
func (m MarketCoin) USDQuote() Quote {
	return m.Quote["USD"]
}

const quoteCacheTTL = 5 * time.Minute

func NewMarketDataClient(baseURL, apiKey string) *MarketDataClient {
	return &MarketDataClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: utils.HTTPClient,
		cache:  gocache.New(quoteCacheTTL, 10*time.Minute),
		// 30 requests/min keeps well under the free-tier quota
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
	}
}

func (c *MarketDataClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := fmt.Sprintf("%s%s", c.BaseURL, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("market API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("❌ [MARKET] %s returned %d: %s", path, resp.StatusCode, string(body))
		return fmt.Errorf("market API returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// QuotesByID fetches current USD quotes for a set of external coin ids.
// Cached ids are served from memory; only misses hit the API. The returned
// map contains an entry per id the API actually knows — callers treat absent
// ids as "price unavailable" and fall back.
func (c *MarketDataClient) QuotesByID(ctx context.Context, ids []int64) (map[int64]MarketCoin, error) {
	result := make(map[int64]MarketCoin, len(ids))
	var misses []string

	for _, id := range ids {
		key := "quote:" + strconv.FormatInt(id, 10)
		if cached, ok := c.cache.Get(key); ok {
			result[id] = cached.(MarketCoin)
			continue
		}
		misses = append(misses, strconv.FormatInt(id, 10))
	}
	if len(misses) == 0 {
		return result, nil
	}

	query := url.Values{}
	query.Set("id", strings.Join(misses, ","))

	var response struct {
		Data map[string]MarketCoin `json:"data"`
	}
	if err := c.get(ctx, "/v2/cryptocurrency/quotes/latest", query, &response); err != nil {
		// Partial cache hits are still useful to the caller.
		return result, err
	}

	for _, coin := range response.Data {
		result[coin.ID] = coin
		c.cache.Set("quote:"+strconv.FormatInt(coin.ID, 10), coin, quoteCacheTTL)
	}
	return result, nil
}

// PricesByID is QuotesByID reduced to USD unit prices, the shape the
// valuation core consumes. A failed fetch yields whatever was cached —
// valuation degrades instead of failing the read.
func (c *MarketDataClient) PricesByID(ctx context.Context, ids []int64) map[int64]float64 {
	quotes, err := c.QuotesByID(ctx, ids)
	if err != nil {
		log.Printf("⚠️  [MARKET] quote fetch failed, valuations will fall back: %v", err)
	}
	prices := make(map[int64]float64, len(quotes))
	for id, coin := range quotes {
		prices[id] = coin.USDQuote().Price
	}
	return prices
}

// TopListings returns the top coins by market cap for the browse view.
func (c *MarketDataClient) TopListings(ctx context.Context, limit int) ([]MarketCoin, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	key := "top:" + strconv.Itoa(limit)
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]MarketCoin), nil
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("sort", "market_cap")

	var response struct {
		Data []MarketCoin `json:"data"`
	}
	if err := c.get(ctx, "/v1/cryptocurrency/listings/latest", query, &response); err != nil {
		return nil, err
	}

	c.cache.Set(key, response.Data, quoteCacheTTL)
	return response.Data, nil
}

// SearchBySymbol looks coins up by ticker symbol for the add-coin dialog.
func (c *MarketDataClient) SearchBySymbol(ctx context.Context, symbol string) ([]MarketCoin, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	query := url.Values{}
	query.Set("symbol", symbol)

	var response struct {
		Data map[string][]MarketCoin `json:"data"`
	}
	if err := c.get(ctx, "/v2/cryptocurrency/quotes/latest", query, &response); err != nil {
		return nil, err
	}

	var coins []MarketCoin
	for _, group := range response.Data {
		coins = append(coins, group...)
	}
	return coins, nil
}
