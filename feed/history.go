package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/swingtrader/market"
)

// HTTPHistory fetches bars from the market-data gateway.
type HTTPHistory struct {
	BaseURL string
	HTTP    *http.Client
}

var _ History = (*HTTPHistory)(nil)

func NewHTTPHistory(baseURL string) *HTTPHistory {
	return &HTTPHistory{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Candles requests GET {base}/candles/{symbol}?timeframe=TF&limit=N.
func (h *HTTPHistory) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Bar, error) {
	if symbol == "" {
		return nil, fmt.Errorf("history: missing symbol")
	}

	u, err := url.Parse(h.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/candles/" + url.PathEscape(symbol)

	q := u.Query()
	q.Set("timeframe", timeframe)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := h.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("history %s %s: http %d: %s", symbol, timeframe, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var raw []candle
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("history %s %s: decode: %w", symbol, timeframe, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("history %s %s: %w", symbol, timeframe, ErrNoBars)
	}

	bars := make([]market.Bar, 0, len(raw))
	for i, c := range raw {
		b, err := c.bar()
		if err != nil {
			return nil, fmt.Errorf("history %s %s: candle %d: %w", symbol, timeframe, i, err)
		}
		bars = append(bars, b)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })

	return bars, nil
}
