package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSignalOrg_Closed(t *testing.T) {
	t.Parallel()

	open := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	r := closedRecord("01HZX3N8A7-abcd", open, open.Add(4*time.Hour), 250)

	out := FormatSignalOrg(r)

	assert.Contains(t, out, "** CLOSED: EURUSD BUY (01HZX3N8)")
	assert.Contains(t, out, ":PROPERTIES:")
	assert.Contains(t, out, ":ID: 01HZX3N8A7-abcd")
	assert.Contains(t, out, ":STRATEGY: ema_cross")
	assert.Contains(t, out, ":QTY: 1500.00")
	assert.Contains(t, out, ":ENTRY_PRICE: 1.08500")
	assert.Contains(t, out, ":PIVOT: 1.08100")
	assert.Contains(t, out, ":OPEN_TIME: 2024-03-15T10:30:45Z")
	assert.Contains(t, out, ":CLOSE_TIME: 2024-03-15T14:30:45Z")
	assert.Contains(t, out, ":OUTCOME: take_profit")
	assert.Contains(t, out, ":REALIZED_PL: 250.00")
	assert.Contains(t, out, ":END:")
	assert.Contains(t, out, "*** Thesis")
	assert.Contains(t, out, "*** Review")
}

func TestFormatSignalOrg_OpenOmitsResult(t *testing.T) {
	t.Parallel()

	r := SignalRecord{ID: "short", Symbol: "GBPUSD", Side: "SELL", Status: StatusOpen}
	out := FormatSignalOrg(r)

	assert.Contains(t, out, "** OPEN: GBPUSD SELL (short)")
	assert.NotContains(t, out, ":CLOSE_TIME:")
	assert.NotContains(t, out, ":OUTCOME:")
	assert.NotContains(t, out, ":PIVOT:")
}

func TestFormatSignalsOrg(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatSignalsOrg(nil))

	recs := []SignalRecord{
		{ID: "one", Symbol: "A", Status: StatusOpen},
		{ID: "two", Symbol: "B", Status: StatusOpen},
	}
	out := FormatSignalsOrg(recs)
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Contains(t, out, "- \n\n\n** OPEN: B")
}

func TestFormatSummaryOrg(t *testing.T) {
	t.Parallel()

	out := FormatSummaryOrg(Summary{Trades: 2, Wins: 1, Losses: 1, WinRate: 50, NetPL: 10, ProfitFactor: 1.5})
	assert.Contains(t, out, "| 2 | 1 | 1 | 50.00 | 10.00 | 1.50 |")
}
