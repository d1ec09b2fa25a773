package chain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/cryptovault/cryptovault/internal/logging"
)

// Transfer is one on-chain transaction touching an address.
type Transfer struct {
	Hash          string          `json:"hash"`
	Timestamp     time.Time       `json:"timestamp"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Value         decimal.Decimal `json:"value"`
	Symbol        string          `json:"symbol"`
	BlockNumber   int64           `json:"block_number"`
	Confirmations int64           `json:"confirmations"`
	Failed        bool            `json:"failed"`
}

// Explorer reads address history from an Etherscan-compatible API.
type Explorer struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	attempts int
	step     time.Duration
	logger   *slog.Logger
}

// NewExplorer builds an Etherscan client. Requests are retried three times
// with a linearly growing pause.
func NewExplorer(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Explorer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Explorer{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		attempts: 3,
		step:     time.Second,
		logger:   logging.Component(logger, "etherscan"),
	}
}

// Transactions returns ether and token transfers for address, newest first.
// Without an API key, or when the indexer fails, the result is empty.
func (e *Explorer) Transactions(ctx context.Context, address string) []Transfer {
	if e.apiKey == "" {
		return nil
	}
	var out []Transfer
	for _, action := range []string{"txlist", "tokentx"} {
		txs, err := e.list(ctx, action, address)
		if err != nil {
			e.logger.Warn("etherscan lookup failed", slog.String("action", action), slog.String("address", address), slog.Any("error", err))
			continue
		}
		out = append(out, txs...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (e *Explorer) list(ctx context.Context, action, address string) ([]Transfer, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", action)
	q.Set("address", address)
	q.Set("page", "1")
	q.Set("offset", "100")
	q.Set("sort", "desc")
	q.Set("apikey", e.apiKey)

	body, err := e.fetch(ctx, e.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if status := gjson.GetBytes(body, "status").String(); status != "1" {
		// "No transactions found" also reports status 0.
		e.logger.Debug("etherscan returned no data", slog.String("action", action), slog.String("message", gjson.GetBytes(body, "message").String()))
		return nil, nil
	}

	var out []Transfer
	gjson.GetBytes(body, "result").ForEach(func(_, tx gjson.Result) bool {
		symbol, decimals := "ETH", int32(18)
		if action == "tokentx" {
			symbol = tx.Get("tokenSymbol").String()
			decimals = int32(tx.Get("tokenDecimal").Int())
		}
		value, err := decimal.NewFromString(tx.Get("value").String())
		if err != nil {
			value = decimal.Zero
		}
		out = append(out, Transfer{
			Hash:          tx.Get("hash").String(),
			Timestamp:     time.Unix(tx.Get("timeStamp").Int(), 0).UTC(),
			From:          tx.Get("from").String(),
			To:            tx.Get("to").String(),
			Value:         value.Shift(-decimals),
			Symbol:        symbol,
			BlockNumber:   tx.Get("blockNumber").Int(),
			Confirmations: tx.Get("confirmations").Int(),
			Failed:        tx.Get("isError").String() == "1",
		})
		return true
	})
	return out, nil
}

func (e *Explorer) fetch(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		body, err := e.get(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if attempt == e.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * e.step):
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", e.attempts, lastErr)
}

func (e *Explorer) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("etherscan status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
