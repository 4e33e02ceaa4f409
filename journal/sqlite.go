package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite mirrors signal records and equity points into a queryable database.
type SQLite struct {
	db *sql.DB
}

var (
	_ Mirror         = (*SQLite)(nil)
	_ EquityRecorder = (*SQLite)(nil)
)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// MirrorSignal inserts or replaces the row for rec.ID.
func (j *SQLite) MirrorSignal(ctx context.Context, rec SignalRecord) error {
	var closedAt *time.Time
	if rec.ClosedAt != nil {
		t := EpochTime(*rec.ClosedAt)
		closedAt = &t
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO signals
		(id, symbol, timeframe, strategy, side, reason, entry_price, stop_loss, take_profit,
		 pivot, qty, opened_at, status, closed_at, exit_price, outcome, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			closed_at = excluded.closed_at,
			exit_price = excluded.exit_price,
			outcome = excluded.outcome,
			pnl = excluded.pnl`,
		rec.ID, rec.Symbol, rec.Timeframe, rec.Strategy, rec.Side, rec.Reason,
		rec.EntryPrice, rec.StopLoss, rec.TakeProfit, rec.Pivot, rec.Qty,
		rec.OpenTime(), rec.Status, closedAt, rec.ExitPrice, rec.Outcome, rec.PnL,
	)
	if err != nil {
		return fmt.Errorf("mirror signal %s: %w", rec.ID, err)
	}
	return nil
}

func (j *SQLite) RecordEquity(ctx context.Context, e EquitySnapshot) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO equity (time, symbol, cash, equity)
		VALUES (?, ?, ?, ?)`,
		e.Time.UTC(), e.Symbol, e.Cash, e.Equity,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
