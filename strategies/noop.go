package strategies

import "github.com/rustyeddy/swingtrader/market"

const NoopName = "noop"

// Noop never signals.
type Noop struct{}

func (Noop) Name() string { return NoopName }

func (Noop) Init([]market.Bar) State { return nil }

func (Noop) OnBar([]market.Bar, State) *market.Signal { return nil }
