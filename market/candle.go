package market

import "time"

// Bar is one OHLCV aggregate. Time is the bar open in unix seconds.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Timestamp returns the bar open as a UTC time.
func (b Bar) Timestamp() time.Time {
	return time.Unix(b.Time, 0).UTC()
}

// Range reports whether price lies within [Low, High].
func (b Bar) Range(price float64) bool {
	return price >= b.Low && price <= b.High
}

// Closes returns the close of every bar in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high of every bar in order.
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low of every bar in order.
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}
