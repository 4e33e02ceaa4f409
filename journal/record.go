package journal

import (
	"math"
	"time"

	"github.com/rustyeddy/swingtrader/market"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"

	OutcomeStopLoss   = "stop_loss"
	OutcomeTakeProfit = "take_profit"
)

// SignalRecord is one trade decision from creation to resolution. Times are
// float epoch seconds.
type SignalRecord struct {
	ID         string   `json:"id"`
	Symbol     string   `json:"symbol"`
	Timeframe  string   `json:"timeframe"`
	Strategy   string   `json:"strategy"`
	Side       string   `json:"side"`
	Reason     string   `json:"reason"`
	EntryPrice float64  `json:"entry_price"`
	StopLoss   float64  `json:"stop_loss"`
	TakeProfit float64  `json:"take_profit"`
	Pivot      *float64 `json:"pivot"`
	Qty        float64  `json:"qty"`
	OpenedAt   float64  `json:"opened_at"`
	Status     string   `json:"status"`
	ClosedAt   *float64 `json:"closed_at"`
	ExitPrice  *float64 `json:"exit_price"`
	Outcome    *string  `json:"outcome"`
	PnL        *float64 `json:"pnl"`
}

// NewSignal carries the fields the caller supplies to RecordSignal.
type NewSignal struct {
	Symbol     string
	Timeframe  string
	Strategy   string
	Side       market.Side
	Reason     string
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Pivot      *float64
	Qty        float64
}

func (r SignalRecord) IsOpen() bool { return r.Status == StatusOpen }

func (r SignalRecord) OpenTime() time.Time { return EpochTime(r.OpenedAt) }

// CloseTime is the zero time for open records.
func (r SignalRecord) CloseTime() time.Time {
	if r.ClosedAt == nil {
		return time.Time{}
	}
	return EpochTime(*r.ClosedAt)
}

// clone deep-copies the nullable fields so callers cannot mutate the index.
func (r SignalRecord) clone() SignalRecord {
	r.Pivot = copyFloat(r.Pivot)
	r.ClosedAt = copyFloat(r.ClosedAt)
	r.ExitPrice = copyFloat(r.ExitPrice)
	r.PnL = copyFloat(r.PnL)
	if r.Outcome != nil {
		o := *r.Outcome
		r.Outcome = &o
	}
	return r
}

// RealizedPnL is (exit-entry)*qty for BUY and the negation for SELL.
func RealizedPnL(side string, entry, exit, qty float64) float64 {
	delta := exit - entry
	if side == string(market.Buy) {
		return delta * qty
	}
	return -delta * qty
}

// EpochSeconds converts t to float seconds since the epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// EpochTime is the inverse of EpochSeconds, in UTC.
func EpochTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
