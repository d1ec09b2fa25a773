package market

import (
	"github.com/shopspring/decimal"
)

type demoEntry struct {
	price  string
	cap    float64
	volume float64
}

var demoTable = map[string]demoEntry{
	"BTC":  {price: "61206.57", cap: 1.15e12, volume: 28e9},
	"ETH":  {price: "3374.01", cap: 390e9, volume: 15e9},
	"TON":  {price: "5.72", cap: 15e9, volume: 500e6},
	"TRX":  {price: "0.13", cap: 12e9, volume: 800e6},
	"SOL":  {price: "102.83", cap: 65e9, volume: 2.5e9},
	"XRP":  {price: "0.54", cap: 35e9, volume: 1.8e9},
	"USDT": {price: "1.01", cap: 92e9, volume: 45e9},
	"USDC": {price: "0.99", cap: 31e9, volume: 3.2e9},
	"DAI":  {price: "1.00", cap: 5e9, volume: 200e6},
	"WBTC": {price: "61205", cap: 4e9, volume: 100e6},
	"LINK": {price: "15.43", cap: 8e9, volume: 500e6},
	"UNI":  {price: "8.27", cap: 6e9, volume: 300e6},
}

const (
	defaultDemoCap    = 1e9
	defaultDemoVolume = 100e6
)

// DemoPrice returns the static price for symbol, zero when unknown.
func DemoPrice(symbol string) decimal.Decimal {
	entry, ok := demoTable[symbol]
	if !ok {
		return decimal.Zero
	}
	return decimal.RequireFromString(entry.price)
}

// demoQuote synthesizes a quote. jitter returns values in [-1, 1); the price
// moves by at most 1% and the 24h change lands in [-5, 5].
func demoQuote(symbol, name string, jitter func() float64) Quote {
	entry, ok := demoTable[symbol]
	if !ok {
		entry = demoEntry{price: "0", cap: defaultDemoCap, volume: defaultDemoVolume}
	}
	price := decimal.RequireFromString(entry.price)
	price = price.Mul(decimal.NewFromFloat(1 + jitter()*0.01)).Round(8)

	return Quote{
		Symbol:    symbol,
		Name:      name,
		Price:     price,
		Change24h: decimal.NewFromFloat(jitter() * 5).Round(2),
		MarketCap: decimal.NewFromFloat(entry.cap),
		Volume24h: decimal.NewFromFloat(entry.volume),
		Source:    SourceFallback,
		Mock:      true,
	}
}
