// Package explorer fetches per-address transaction lists from an
// etherscan-style block explorer API.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pvzzle/miniwallet/internal/storage"

	"golang.org/x/time/rate"
)

type Client struct {
	httpc   *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// New builds a client for baseURL (e.g. https://api-holesky.etherscan.io/api).
// Requests are rate-limited client-side so cache refresh storms cannot
// flood the API.
func New(baseURL, apiKey string) *Client {
	return &Client{
		httpc:   &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 2),
	}
}

type txListResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type txListItem struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	TimeStamp string `json:"timeStamp"`
}

// TxList returns the full transaction list for address, newest first.
// "No transactions found" is an empty result, not an error.
func (c *Client) TxList(ctx context.Context, address string) ([]storage.TxRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("sort", "desc")
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer status %d", resp.StatusCode)
	}

	var body txListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}

	if body.Status != "1" {
		if strings.Contains(strings.ToLower(body.Message), "no transactions") {
			return []storage.TxRecord{}, nil
		}
		return nil, fmt.Errorf("explorer error: %s", body.Message)
	}

	var items []txListItem
	if err := json.Unmarshal(body.Result, &items); err != nil {
		return nil, fmt.Errorf("decode explorer result: %w", err)
	}

	out := make([]storage.TxRecord, 0, len(items))
	for _, it := range items {
		rec := storage.TxRecord{
			Hash:     it.Hash,
			FromAddr: it.From,
			ToAddr:   it.To,
			ValueWei: it.Value,
		}
		if ts, err := strconv.ParseInt(it.TimeStamp, 10, 64); err == nil {
			rec.Timestamp = time.Unix(ts, 0).UTC()
		}
		out = append(out, rec)
	}
	return out, nil
}
