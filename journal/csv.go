package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader  = []string{"ts_open", "ts_close", "side", "entry", "exit", "qty", "sl", "tp", "reason", "pnl"}
	equityHeader = []string{"ts", "equity"}
)

// CSVJournal writes backtest round trips and the equity curve to two files.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

var _ Journal = (*CSVJournal)(nil)

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write(tradeHeader); err != nil {
		return nil, err
	}
	if err := ew.Write(equityHeader); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, ew, tf, ef}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	closeTS := ""
	if !t.CloseTime.IsZero() {
		closeTS = unix(t.CloseTime)
	}
	return j.trades.Write([]string{
		unix(t.OpenTime),
		closeTS,
		t.Side,
		f(t.EntryPrice),
		f(t.ExitPrice),
		f(t.Qty),
		f(t.StopLoss),
		f(t.TakeProfit),
		t.Reason,
		f(t.RealizedPL),
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.equity.Write([]string{unix(e.Time), f(e.Equity)})
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func unix(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
