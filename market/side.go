package market

import (
	"fmt"
	"strings"
)

// Side is a trade direction. Flat means "no position / no signal" and is
// never tradeable.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
	Flat Side = "FLAT"
)

// ParseSide accepts BUY/SELL/FLAT in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	case Flat, "":
		return Flat, nil
	default:
		return Flat, fmt.Errorf("unknown side %q", s)
	}
}

// Tradeable reports whether s is BUY or SELL.
func (s Side) Tradeable() bool { return s == Buy || s == Sell }

// Opposite returns the closing direction for s. Flat stays flat.
func (s Side) Opposite() Side {
	switch s {
	case Buy:
		return Sell
	case Sell:
		return Buy
	default:
		return Flat
	}
}

// Sign is +1 for BUY, -1 for SELL and 0 otherwise.
func (s Side) Sign() float64 {
	switch s {
	case Buy:
		return 1
	case Sell:
		return -1
	default:
		return 0
	}
}

func (s Side) String() string { return string(s) }

// Signal is a strategy's directional call for a single bar close.
type Signal struct {
	Side   Side
	Reason string
	Extras map[string]float64
}

// Extra returns a named auxiliary value. ok is false when absent.
func (s *Signal) Extra(name string) (v float64, ok bool) {
	if s == nil || s.Extras == nil {
		return 0, false
	}
	v, ok = s.Extras[name]
	return v, ok
}
