// Package strategies holds the signal generators the engine consults on
// every bar and a registry to build them by name from configuration.
package strategies

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/swingtrader/market"
)

// State is a strategy's private per-symbol memory, created by Init and
// passed back on every OnBar call.
type State any

// Strategy turns the history up to and including the newest bar into at most
// one signal. history is append-only and must not be modified.
type Strategy interface {
	Name() string
	Init(history []market.Bar) State
	OnBar(history []market.Bar, st State) *market.Signal
}

// Factory builds a strategy from its configuration block.
type Factory func(p Params) (Strategy, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{
		EMACrossName:     NewEMACrossFromParams,
		RangeFadeName:    NewRangeFadeFromParams,
		OCOBreakoutName:  NewOCOBreakoutFromParams,
		TurtleDennisName: NewTurtleDennisFromParams,
		NoopName:         func(Params) (Strategy, error) { return Noop{}, nil },
	}
)

// Register adds or replaces a factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[normalize(name)] = f
}

// Names lists the registered strategies, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Build constructs the named strategy. nil params means defaults.
func Build(name string, p Params) (Strategy, error) {
	mu.RLock()
	f, ok := registry[normalize(name)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	s, err := f(p)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", name, err)
	}
	return s, nil
}

// BuildAll builds every configured strategy keyed by name.
func BuildAll(cfg map[string]Params) (map[string]Strategy, error) {
	out := make(map[string]Strategy, len(cfg))
	for name, p := range cfg {
		s, err := Build(name, p)
		if err != nil {
			return nil, err
		}
		out[s.Name()] = s
	}
	return out, nil
}

func normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// lastSide remembers the previous signal so a strategy does not repeat it.
type lastSide struct {
	Side market.Side
}

func (s *lastSide) take(side market.Side) bool {
	if s.Side == side {
		return false
	}
	s.Side = side
	return true
}

func signal(side market.Side, reason string, extras map[string]float64) *market.Signal {
	if extras == nil {
		extras = map[string]float64{}
	}
	return &market.Signal{Side: side, Reason: reason, Extras: extras}
}
