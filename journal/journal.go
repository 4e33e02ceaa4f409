package journal

import (
	"context"
	"time"
)

// TradeRecord is a completed round trip as written by the backtest.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Strategy   string
	Side       string
	Qty        float64
	EntryPrice float64
	ExitPrice  float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// EquitySnapshot is the account value at a point in time.
type EquitySnapshot struct {
	Time   time.Time
	Symbol string
	Cash   float64
	Equity float64
}

// Journal receives round trips and equity points.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Mirror receives every signal record after the signal logger has made it
// durable.
type Mirror interface {
	MirrorSignal(ctx context.Context, rec SignalRecord) error
}

// EquityRecorder stores live equity points.
type EquityRecorder interface {
	RecordEquity(ctx context.Context, e EquitySnapshot) error
}
