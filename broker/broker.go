package broker

import (
	"errors"

	"github.com/rustyeddy/swingtrader/market"
)

// ErrInvalidOrder is returned for orders that break the broker contract
// (non-positive quantity, bad price, FLAT side, missing symbol). Business
// rejections such as insufficient cash are reported in Fill instead.
var ErrInvalidOrder = errors.New("invalid order")

// Rejection reasons carried in Fill.Reason.
const (
	ReasonInsufficientCash = "insufficient_cash"
)

// Price types.
const (
	Market = "MKT"
	Limit  = "LMT"
)

// Broker accepts market orders and keeps the cash ledger.
type Broker interface {
	Mark(symbol string, price float64)
	Place(order Order, marketPrice float64) (Fill, error)
	Cash() float64
	Equity() float64
	Position(symbol string) Position
}

type Order struct {
	Symbol     string
	Side       market.Side
	Qty        float64
	StopLoss   *float64
	TakeProfit *float64
	PriceType  string
}

// Position is signed: negative Qty is short.
type Position struct {
	Qty      float64 `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}

// Flat reports whether there is no exposure.
func (p Position) Flat() bool { return p.Qty == 0 }

// Fill is the broker's answer to Place. When Accepted is false only Reason
// and Cash are meaningful.
type Fill struct {
	Accepted  bool     `json:"accepted"`
	Reason    string   `json:"reason,omitempty"`
	FillPrice float64  `json:"fill_price"`
	Fee       float64  `json:"fee"`
	Cash      float64  `json:"cash"`
	Position  Position `json:"pos"`
}
