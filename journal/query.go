package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

const signalColumns = `id, symbol, timeframe, strategy, side, reason, entry_price, stop_loss,
	take_profit, pivot, qty, opened_at, status, closed_at, exit_price, outcome, pnl`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (SignalRecord, error) {
	var (
		rec      SignalRecord
		pivot    sql.NullFloat64
		openedAt time.Time
		closedAt sql.NullTime
		exit     sql.NullFloat64
		outcome  sql.NullString
		pnl      sql.NullFloat64
	)
	err := row.Scan(
		&rec.ID, &rec.Symbol, &rec.Timeframe, &rec.Strategy, &rec.Side, &rec.Reason,
		&rec.EntryPrice, &rec.StopLoss, &rec.TakeProfit, &pivot, &rec.Qty,
		&openedAt, &rec.Status, &closedAt, &exit, &outcome, &pnl,
	)
	if err != nil {
		return SignalRecord{}, err
	}

	rec.OpenedAt = EpochSeconds(openedAt)
	if pivot.Valid {
		rec.Pivot = &pivot.Float64
	}
	if closedAt.Valid {
		v := EpochSeconds(closedAt.Time)
		rec.ClosedAt = &v
	}
	if exit.Valid {
		rec.ExitPrice = &exit.Float64
	}
	if outcome.Valid {
		rec.Outcome = &outcome.String
	}
	if pnl.Valid {
		rec.PnL = &pnl.Float64
	}
	return rec, nil
}

// GetSignal returns a single mirrored record by id.
func (j *SQLite) GetSignal(ctx context.Context, sigID string) (SignalRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+signalColumns+` FROM signals WHERE id = ?`, sigID)
	rec, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SignalRecord{}, fmt.Errorf("signal %q: %w", sigID, ErrNotFound)
		}
		return SignalRecord{}, err
	}
	return rec, nil
}

// ListSignalsClosedBetween returns records whose closed_at is within
// [start, end), oldest first.
func (j *SQLite) ListSignalsClosedBetween(ctx context.Context, start, end time.Time) ([]SignalRecord, error) {
	return j.querySignals(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE closed_at >= ? AND closed_at < ?
		ORDER BY closed_at ASC, id ASC`, start.UTC(), end.UTC())
}

// ListOpenSignals returns open records, optionally for one symbol.
func (j *SQLite) ListOpenSignals(ctx context.Context, symbol string) ([]SignalRecord, error) {
	if symbol == "" {
		return j.querySignals(ctx, `
			SELECT `+signalColumns+` FROM signals
			WHERE status = ? ORDER BY opened_at ASC, id ASC`, StatusOpen)
	}
	return j.querySignals(ctx, `
		SELECT `+signalColumns+` FROM signals
		WHERE status = ? AND symbol = ? ORDER BY opened_at ASC, id ASC`, StatusOpen, symbol)
}

func (j *SQLite) querySignals(ctx context.Context, q string, args ...any) ([]SignalRecord, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		rec, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity points within [start, end), oldest first.
func (j *SQLite) ListEquityBetween(ctx context.Context, start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, symbol, cash, equity
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Symbol, &e.Cash, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary aggregates realized results.
type Summary struct {
	Trades       int
	Wins         int
	Losses       int
	GrossProfit  float64
	GrossLoss    float64
	NetPL        float64
	WinRate      float64
	ProfitFactor float64
}

// Summarize computes totals over closed records.
func Summarize(recs []SignalRecord) Summary {
	var s Summary
	for _, r := range recs {
		if r.PnL == nil {
			continue
		}
		s.Trades++
		p := *r.PnL
		s.NetPL += p
		switch {
		case p > 0:
			s.Wins++
			s.GrossProfit += p
		case p < 0:
			s.Losses++
			s.GrossLoss += -p
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	return s
}
