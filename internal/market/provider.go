package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/cryptovault/cryptovault/internal/asset"
)

var (
	// ErrUnsupported means the provider has no id for the coin.
	ErrUnsupported = errors.New("coin not listed by provider")
	// ErrNoPrice is returned when a provider answers without a usable price.
	ErrNoPrice = errors.New("provider returned no price")
)

// Provider fetches live market data for a coin.
type Provider interface {
	Name() Source
	Fetch(ctx context.Context, coin asset.Coin) (Quote, error)
}

// ProviderConfig configures an HTTP market-data provider.
type ProviderConfig struct {
	BaseURL        string
	APIKey         string
	RequestsPerSec float64
	HTTPClient     *http.Client
}

type httpProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPProvider(cfg ProviderConfig) httpProvider {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	return httpProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (p httpProvider) get(ctx context.Context, path string, header map[string]string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

// CoinGecko is the primary provider.
type CoinGecko struct {
	httpProvider
}

// NewCoinGecko builds a CoinGecko client. A non-empty APIKey is sent in the
// x-cg-pro-api-key header.
func NewCoinGecko(cfg ProviderConfig) *CoinGecko {
	return &CoinGecko{httpProvider: newHTTPProvider(cfg)}
}

func (p *CoinGecko) Name() Source { return SourceCoinGecko }

func (p *CoinGecko) Fetch(ctx context.Context, coin asset.Coin) (Quote, error) {
	if coin.CoinGeckoID == "" {
		return Quote{}, ErrUnsupported
	}
	header := map[string]string{}
	if p.apiKey != "" {
		header["x-cg-pro-api-key"] = p.apiKey
	}
	path := "/coins/" + coin.CoinGeckoID + "?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false"
	body, err := p.get(ctx, path, header)
	if err != nil {
		return Quote{}, fmt.Errorf("coingecko %s: %w", coin.Symbol, err)
	}

	md := gjson.GetBytes(body, "market_data")
	price, err := decimalOf(md.Get("current_price.usd"))
	if err != nil || !price.IsPositive() {
		return Quote{}, fmt.Errorf("coingecko %s: %w", coin.Symbol, ErrNoPrice)
	}
	change, _ := decimalOf(md.Get("price_change_percentage_24h"))
	mcap, _ := decimalOf(md.Get("market_cap.usd"))
	volume, _ := decimalOf(md.Get("total_volume.usd"))

	name := gjson.GetBytes(body, "name").String()
	if name == "" {
		name = coin.Name
	}
	return Quote{
		Symbol:    coin.Symbol,
		Name:      name,
		Price:     price,
		Change24h: change,
		MarketCap: mcap,
		Volume24h: volume,
		Source:    SourceCoinGecko,
	}, nil
}

// CoinCap is the secondary provider. It reports every number as a string.
type CoinCap struct {
	httpProvider
}

func NewCoinCap(cfg ProviderConfig) *CoinCap {
	return &CoinCap{httpProvider: newHTTPProvider(cfg)}
}

func (p *CoinCap) Name() Source { return SourceCoinCap }

func (p *CoinCap) Fetch(ctx context.Context, coin asset.Coin) (Quote, error) {
	if coin.CoinCapID == "" {
		return Quote{}, ErrUnsupported
	}
	var header map[string]string
	if p.apiKey != "" {
		header = map[string]string{"Authorization": "Bearer " + p.apiKey}
	}
	body, err := p.get(ctx, "/assets/"+coin.CoinCapID, header)
	if err != nil {
		return Quote{}, fmt.Errorf("coincap %s: %w", coin.Symbol, err)
	}

	data := gjson.GetBytes(body, "data")
	price, err := decimalOf(data.Get("priceUsd"))
	if err != nil || !price.IsPositive() {
		return Quote{}, fmt.Errorf("coincap %s: %w", coin.Symbol, ErrNoPrice)
	}
	change, _ := decimalOf(data.Get("changePercent24Hr"))
	mcap, _ := decimalOf(data.Get("marketCapUsd"))
	volume, _ := decimalOf(data.Get("volumeUsd24Hr"))

	name := data.Get("name").String()
	if name == "" {
		name = coin.Name
	}
	return Quote{
		Symbol:    coin.Symbol,
		Name:      name,
		Price:     price,
		Change24h: change,
		MarketCap: mcap,
		Volume24h: volume,
		Source:    SourceCoinCap,
	}, nil
}

func decimalOf(r gjson.Result) (decimal.Decimal, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return decimal.Zero, ErrNoPrice
	}
	return decimal.NewFromString(r.String())
}
