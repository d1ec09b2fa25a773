// Package market resolves coin prices through a chain of sources: a short-lived
// cache, the primary and secondary market-data providers, and finally a static
// table of demo prices.
package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source names where a quote came from.
type Source string

const (
	SourceCoinGecko Source = "coingecko"
	SourceCoinCap   Source = "coincap"
	SourceFallback  Source = "fallback"
)

// Quote is a point-in-time view of a coin's market data.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change_24h"`
	MarketCap decimal.Decimal `json:"market_cap"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	Source    Source          `json:"source"`
	Mock      bool            `json:"mock"`
	FetchedAt time.Time       `json:"fetched_at"`
}
