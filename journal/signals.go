package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/swingtrader/internal/atomicfile"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/pkg/id"
)

// File names inside the logger's base directory.
const (
	LogFile    = "signals.jsonl"
	StateFile  = "signals_state.json"
	LevelsFile = "levels.json"
)

const (
	eventSignal = "signal"
	eventResult = "result"
)

// State is the layout of signals_state.json.
type State struct {
	Signals []SignalRecord `json:"signals"`
}

// Level is the reduced view of an open signal written to levels.json.
type Level struct {
	ID       string   `json:"id"`
	Symbol   string   `json:"symbol"`
	Strategy string   `json:"strategy"`
	Side     string   `json:"side"`
	Entry    float64  `json:"entry"`
	Stop     float64  `json:"stop"`
	Target   float64  `json:"target"`
	Pivot    *float64 `json:"pivot"`
}

// Levels is the layout of levels.json.
type Levels struct {
	Levels      []Level `json:"levels"`
	GeneratedAt float64 `json:"generated_at"`
}

type event struct {
	Event string `json:"event"`
	SignalRecord
}

// SignalLogger owns the lifecycle of every signal. The in-memory index is the
// authority; the three files are durable mirrors of it. A mutation is only
// acknowledged after the snapshot has been written.
type SignalLogger struct {
	mu     sync.Mutex
	dir    string
	index  map[string]SignalRecord
	mirror Mirror
	log    zerolog.Logger
	now    func() time.Time
}

type Option func(*SignalLogger)

// WithMirror forwards every durable record to m.
func WithMirror(m Mirror) Option {
	return func(l *SignalLogger) { l.mirror = m }
}

func WithLogger(log zerolog.Logger) Option {
	return func(l *SignalLogger) { l.log = log }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *SignalLogger) { l.now = now }
}

// Open creates dir if needed and reloads the index from the state snapshot.
// The event log is not replayed.
func Open(dir string, opts ...Option) (*SignalLogger, error) {
	l := &SignalLogger{
		dir:   dir,
		index: make(map[string]SignalRecord),
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("signal logger: %w", err)
	}

	recs, err := ReadState(l.path(StateFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("signal logger: %w", err)
	default:
		for _, r := range recs {
			l.index[r.ID] = r
		}
	}

	if err := l.writeLevelsLocked(); err != nil {
		return nil, fmt.Errorf("signal logger: %w", err)
	}

	l.log.Info().
		Str("dir", dir).
		Int("records", len(l.index)).
		Msg("signal logger opened")
	return l, nil
}

// Dir is the base directory.
func (l *SignalLogger) Dir() string { return l.dir }

// RecordSignal creates an open record and returns its id once the snapshot
// is durable.
func (l *SignalLogger) RecordSignal(ctx context.Context, s NewSignal) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.Side.Tradeable() {
		return "", fmt.Errorf("record signal: side %q is not tradeable", s.Side)
	}
	if s.Symbol == "" || s.Strategy == "" {
		return "", errors.New("record signal: symbol and strategy are required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec := SignalRecord{
		ID:         id.NewAt(now),
		Symbol:     s.Symbol,
		Timeframe:  s.Timeframe,
		Strategy:   s.Strategy,
		Side:       string(s.Side),
		Reason:     s.Reason,
		EntryPrice: s.EntryPrice,
		StopLoss:   s.StopLoss,
		TakeProfit: s.TakeProfit,
		Pivot:      copyFloat(s.Pivot),
		Qty:        s.Qty,
		OpenedAt:   EpochSeconds(now),
		Status:     StatusOpen,
	}

	if err := l.appendLocked(eventSignal, rec); err != nil {
		return "", fmt.Errorf("record signal: %w", err)
	}

	l.index[rec.ID] = rec
	if err := l.writeStateLocked(); err != nil {
		delete(l.index, rec.ID)
		return "", fmt.Errorf("record signal: %w", err)
	}
	l.afterWriteLocked(ctx, rec)

	return rec.ID, nil
}

// ResolveSignal closes an open record. Unknown or already closed ids are a
// no-op and report false.
func (l *SignalLogger) ResolveSignal(ctx context.Context, sigID string, exitPrice float64, outcome string) (SignalRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return SignalRecord{}, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.index[sigID]
	if !ok || !prev.IsOpen() {
		return SignalRecord{}, false, nil
	}

	closedAt := EpochSeconds(l.now())
	pnl := RealizedPnL(prev.Side, prev.EntryPrice, exitPrice, prev.Qty)
	exit := exitPrice
	out := outcome

	rec := prev.clone()
	rec.Status = StatusClosed
	rec.ClosedAt = &closedAt
	rec.ExitPrice = &exit
	rec.Outcome = &out
	rec.PnL = &pnl

	if err := l.appendLocked(eventResult, rec); err != nil {
		return SignalRecord{}, false, fmt.Errorf("resolve signal %s: %w", sigID, err)
	}

	l.index[sigID] = rec
	if err := l.writeStateLocked(); err != nil {
		l.index[sigID] = prev
		return SignalRecord{}, false, fmt.Errorf("resolve signal %s: %w", sigID, err)
	}
	l.afterWriteLocked(ctx, rec)

	return rec.clone(), true, nil
}

// Get returns a copy of the record with id.
func (l *SignalLogger) Get(sigID string) (SignalRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.index[sigID]
	if !ok {
		return SignalRecord{}, false
	}
	return r.clone(), true
}

// Records returns every record ordered by opened_at then id.
func (l *SignalLogger) Records() []SignalRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked(func(SignalRecord) bool { return true })
}

// OpenRecords returns open records for symbol and timeframe. An empty
// timeframe matches any.
func (l *SignalLogger) OpenRecords(symbol, timeframe string) []SignalRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked(func(r SignalRecord) bool {
		return r.IsOpen() && r.Symbol == symbol && (timeframe == "" || r.Timeframe == timeframe)
	})
}

func (l *SignalLogger) sortedLocked(keep func(SignalRecord) bool) []SignalRecord {
	out := make([]SignalRecord, 0, len(l.index))
	for _, r := range l.index {
		if keep(r) {
			out = append(out, r.clone())
		}
	}
	sortRecords(out)
	return out
}

func sortRecords(recs []SignalRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].OpenedAt != recs[j].OpenedAt {
			return recs[i].OpenedAt < recs[j].OpenedAt
		}
		return recs[i].ID < recs[j].ID
	})
}

func (l *SignalLogger) path(name string) string { return filepath.Join(l.dir, name) }

func (l *SignalLogger) appendLocked(kind string, rec SignalRecord) error {
	line, err := json.Marshal(event{Event: kind, SignalRecord: rec})
	if err != nil {
		return err
	}
	f, err := os.OpenFile(l.path(LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (l *SignalLogger) writeStateLocked() error {
	st := State{Signals: l.sortedLocked(func(SignalRecord) bool { return true })}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.Write(l.path(StateFile), data, 0o644)
}

func (l *SignalLogger) writeLevelsLocked() error {
	open := l.sortedLocked(SignalRecord.IsOpen)
	lv := Levels{
		Levels:      make([]Level, 0, len(open)),
		GeneratedAt: EpochSeconds(l.now()),
	}
	for _, r := range open {
		lv.Levels = append(lv.Levels, Level{
			ID:       r.ID,
			Symbol:   r.Symbol,
			Strategy: r.Strategy,
			Side:     r.Side,
			Entry:    r.EntryPrice,
			Stop:     r.StopLoss,
			Target:   r.TakeProfit,
			Pivot:    r.Pivot,
		})
	}
	data, err := json.MarshalIndent(lv, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.Write(l.path(LevelsFile), data, 0o644)
}

// afterWriteLocked runs once the snapshot is durable. levels.json is derived
// and rebuilt on every mutation, so failures here are logged only.
func (l *SignalLogger) afterWriteLocked(ctx context.Context, rec SignalRecord) {
	if err := l.writeLevelsLocked(); err != nil {
		l.log.Warn().Err(err).Str("id", rec.ID).Msg("levels snapshot not written")
	}
	if l.mirror == nil {
		return
	}
	if err := l.mirror.MirrorSignal(ctx, rec.clone()); err != nil {
		l.log.Warn().Err(err).Str("id", rec.ID).Msg("signal mirror failed")
	}
}

// ReadState loads signals_state.json.
func ReadState(path string) ([]SignalRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	sortRecords(st.Signals)
	return st.Signals, nil
}

// ReadLevels loads levels.json.
func ReadLevels(path string) (Levels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Levels{}, err
	}
	var lv Levels
	if err := json.Unmarshal(data, &lv); err != nil {
		return Levels{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return lv, nil
}

// FilterRecords keeps records matching status and symbol (empty matches
// all) and returns at most limit of the most recent ones.
func FilterRecords(recs []SignalRecord, status, symbol string, limit int) []SignalRecord {
	out := make([]SignalRecord, 0, len(recs))
	for _, r := range recs {
		if status != "" && r.Status != status {
			continue
		}
		if symbol != "" && r.Symbol != symbol {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// SideOf parses the stored side string.
func SideOf(r SignalRecord) market.Side {
	s, err := market.ParseSide(r.Side)
	if err != nil {
		return market.Flat
	}
	return s
}
