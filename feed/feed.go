// Package feed supplies bars to the engine: a bounded historical fetch and
// an unbounded live subscription.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/swingtrader/market"
)

// ErrNoBars is returned when a history request yields nothing.
var ErrNoBars = errors.New("no bars returned")

// History fetches up to limit of the most recent bars, oldest first.
type History interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Bar, error)
}

// Live streams closed bars. The channel is closed when ctx is done or the
// stream cannot continue.
type Live interface {
	Stream(ctx context.Context, symbol, timeframe string) (<-chan market.Bar, error)
}

// candle is the gateway's wire form.
type candle struct {
	Time       json.RawMessage `json:"time"`
	Open       float64         `json:"open"`
	High       float64         `json:"high"`
	Low        float64         `json:"low"`
	Close      float64         `json:"close"`
	TickVolume *float64        `json:"tick_volume"`
	RealVolume *float64        `json:"real_volume"`
}

func (c candle) bar() (market.Bar, error) {
	ts, err := parseTime(c.Time)
	if err != nil {
		return market.Bar{}, err
	}
	b := market.Bar{Time: ts, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close}
	switch {
	case c.TickVolume != nil:
		b.Volume = *c.TickVolume
	case c.RealVolume != nil:
		b.Volume = *c.RealVolume
	}
	return b, nil
}

// epochMillisCutoff separates epoch milliseconds from epoch seconds.
const epochMillisCutoff = 1e12

// parseTime accepts an ISO-8601 string or an epoch number in seconds or
// milliseconds and returns epoch seconds.
func parseTime(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, errors.New("missing time")
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, err
		}
		return ParseTimestamp(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad time %s: %w", s, err)
	}
	return epochSeconds(f), nil
}

// ParseTimestamp parses RFC3339 (with or without zone) or an epoch number.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return epochSeconds(f), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("bad time %q", s)
}

func epochSeconds(f float64) int64 {
	if f > epochMillisCutoff {
		return int64(f / 1000)
	}
	return int64(f)
}
