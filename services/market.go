// services/market.go - Public market-data collaborator (read-only)
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Quote is one instrument's price snapshot from the public market API.
type Quote struct {
	Symbol    string    `json:"symbol"`
	PriceUSD  float64   `json:"price_usd"`
	Change24h float64   `json:"change_24h"`
	FetchedAt time.Time `json:"fetched_at"`
}

// MarketClient fetches prices on demand from a public read-only API. There
// is no write path.
type MarketClient struct {
	BaseURL string
	Client  *http.Client
}

func NewMarketClient() *MarketClient {
	baseURL := os.Getenv("MARKET_API_URL")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &MarketClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type geckoPrice struct {
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
}

// GetQuotes fetches current prices for the given symbols.
func (c *MarketClient) GetQuotes(symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	ids := strings.ToLower(strings.Join(symbols, ","))
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		c.BaseURL, url.QueryEscape(ids))

	resp, err := c.Client.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market API returned %d: %s", resp.StatusCode, string(body))
	}

	var raw map[string]geckoPrice
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	quotes := make([]Quote, 0, len(raw))
	for symbol, p := range raw {
		quotes = append(quotes, Quote{
			Symbol:    symbol,
			PriceUSD:  p.USD,
			Change24h: p.Change24h,
			FetchedAt: now,
		})
	}
	return quotes, nil
}
