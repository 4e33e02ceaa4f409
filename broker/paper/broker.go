// Package paper is an in-process simulated broker with a flat cash ledger.
// Short selling is permitted; there is no margin model.
package paper

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rustyeddy/swingtrader/broker"
	"github.com/rustyeddy/swingtrader/market"
)

const (
	DefaultStartingCash = 10_000.0
	DefaultFeeBps       = 1.0

	epsilon = 1e-9
)

type Broker struct {
	mu        sync.Mutex
	cash      float64
	equity    float64
	feeBps    float64
	positions map[string]broker.Position
	marks     map[string]float64
}

var _ broker.Broker = (*Broker)(nil)

func New(startingCash, feeBps float64) *Broker {
	return &Broker{
		cash:      startingCash,
		equity:    startingCash,
		feeBps:    feeBps,
		positions: make(map[string]broker.Position),
		marks:     make(map[string]float64),
	}
}

// Mark records the latest price for symbol and revalues equity.
func (b *Broker) Mark(symbol string, price float64) {
	if !validPrice(price) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.marks[symbol] = price
	b.revalueLocked()
}

// Place fills order at marketPrice. The returned error is non-nil only for
// malformed orders; a business rejection is a Fill with Accepted=false.
func (b *Broker) Place(o broker.Order, marketPrice float64) (broker.Fill, error) {
	if err := validate(o, marketPrice); err != nil {
		return broker.Fill{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	notional := o.Qty * marketPrice
	fee := math.Abs(notional) * b.feeBps / 1e4
	pos := b.positions[o.Symbol]

	var delta float64
	switch o.Side {
	case market.Buy:
		cost := notional + fee
		if b.cash < cost {
			return broker.Fill{Accepted: false, Reason: broker.ReasonInsufficientCash, Cash: b.cash, Position: pos}, nil
		}
		b.cash -= cost
		delta = o.Qty
	case market.Sell:
		b.cash += notional - fee
		delta = -o.Qty
	}

	pos = applyFill(pos, delta, marketPrice)
	if pos.Flat() {
		delete(b.positions, o.Symbol)
	} else {
		b.positions[o.Symbol] = pos
	}

	b.marks[o.Symbol] = marketPrice
	b.revalueLocked()

	return broker.Fill{
		Accepted:  true,
		FillPrice: marketPrice,
		Fee:       fee,
		Cash:      b.cash,
		Position:  pos,
	}, nil
}

func (b *Broker) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

func (b *Broker) Equity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.equity
}

func (b *Broker) Position(symbol string) broker.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positions[symbol]
}

// Positions returns a copy of all non-flat positions.
func (b *Broker) Positions() map[string]broker.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]broker.Position, len(b.positions))
	for sym, p := range b.positions {
		out[sym] = p
	}
	return out
}

// Symbols returns the symbols with open exposure, sorted.
func (b *Broker) Symbols() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.positions))
	for sym := range b.positions {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (b *Broker) revalueLocked() {
	eq := b.cash
	for sym, p := range b.positions {
		mark, ok := b.marks[sym]
		if !ok {
			mark = p.AvgPrice
		}
		eq += p.Qty * mark
	}
	b.equity = eq
}

// applyFill adds signed delta at price to pos.
func applyFill(pos broker.Position, delta, price float64) broker.Position {
	newQty := pos.Qty + delta
	if math.Abs(newQty) < epsilon {
		return broker.Position{}
	}

	switch {
	case pos.Qty == 0 || sameSign(pos.Qty, delta):
		// opening or extending
		pos.AvgPrice = (pos.AvgPrice*math.Abs(pos.Qty) + price*math.Abs(delta)) / math.Abs(newQty)
	case sameSign(pos.Qty, newQty):
		// reducing, avg unchanged
	default:
		// flipped through zero
		pos.AvgPrice = price
	}
	pos.Qty = newQty
	return pos
}

func sameSign(a, b float64) bool { return (a > 0) == (b > 0) }

func validate(o broker.Order, price float64) error {
	switch {
	case o.Symbol == "":
		return fmt.Errorf("%w: empty symbol", broker.ErrInvalidOrder)
	case !o.Side.Tradeable():
		return fmt.Errorf("%w: side %q", broker.ErrInvalidOrder, o.Side)
	case !(o.Qty > 0) || math.IsInf(o.Qty, 0):
		return fmt.Errorf("%w: qty %v", broker.ErrInvalidOrder, o.Qty)
	case !validPrice(price):
		return fmt.Errorf("%w: price %v", broker.ErrInvalidOrder, price)
	}
	return nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
