package feed

import (
	"context"
	"time"

	"github.com/rustyeddy/swingtrader/market"
)

// Replay is a Live feed that plays back a fixed set of bars, optionally
// pausing between them, then closes the stream.
type Replay struct {
	Bars  []market.Bar
	Delay time.Duration
}

var _ Live = (*Replay)(nil)

func (r *Replay) Stream(ctx context.Context, _, _ string) (<-chan market.Bar, error) {
	out := make(chan market.Bar)
	bars := append([]market.Bar(nil), r.Bars...)

	go func() {
		defer close(out)
		for _, b := range bars {
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
			if r.Delay > 0 && !sleep(ctx, r.Delay) {
				return
			}
		}
	}()
	return out, nil
}

// Static is a History that returns a fixed slice.
type Static struct {
	Bars []market.Bar
	Err  error
}

var _ History = Static{}

func (s Static) Candles(ctx context.Context, _, _ string, limit int) ([]market.Bar, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars := s.Bars
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return append([]market.Bar(nil), bars...), nil
}
