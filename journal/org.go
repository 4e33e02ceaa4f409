package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatSignalOrg renders a record as an Org-mode block for a trading
// journal. Facts go in the PROPERTIES drawer; the narrative headings are
// left for the trader to fill in.
func FormatSignalOrg(r SignalRecord) string {
	heading := fmt.Sprintf("** %s: %s %s (%s)", strings.ToUpper(r.Status), r.Symbol, r.Side, shortID(r.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", r.ID))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", r.Symbol))
	b.WriteString(fmt.Sprintf(":TIMEFRAME: %s\n", r.Timeframe))
	b.WriteString(fmt.Sprintf(":STRATEGY: %s\n", r.Strategy))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", r.Side))
	b.WriteString(fmt.Sprintf(":QTY: %.2f\n", r.Qty))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.5f\n", r.EntryPrice))
	b.WriteString(fmt.Sprintf(":STOP_LOSS: %.5f\n", r.StopLoss))
	b.WriteString(fmt.Sprintf(":TAKE_PROFIT: %.5f\n", r.TakeProfit))
	if r.Pivot != nil {
		b.WriteString(fmt.Sprintf(":PIVOT: %.5f\n", *r.Pivot))
	}
	b.WriteString(fmt.Sprintf(":OPEN_TIME: %s\n", r.OpenTime().Format(time.RFC3339)))
	if r.ClosedAt != nil {
		b.WriteString(fmt.Sprintf(":CLOSE_TIME: %s\n", r.CloseTime().Format(time.RFC3339)))
	}
	if r.ExitPrice != nil {
		b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.5f\n", *r.ExitPrice))
	}
	if r.Outcome != nil {
		b.WriteString(fmt.Sprintf(":OUTCOME: %s\n", *r.Outcome))
	}
	if r.PnL != nil {
		b.WriteString(fmt.Sprintf(":REALIZED_PL: %.2f\n", *r.PnL))
	}
	b.WriteString(fmt.Sprintf(":REASON: %s\n", r.Reason))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatSignalsOrg renders multiple records separated by blank lines.
func FormatSignalsOrg(recs []SignalRecord) string {
	var b strings.Builder
	for i, r := range recs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatSignalOrg(r))
	}
	return b.String()
}

// FormatSummaryOrg renders a one-line summary table.
func FormatSummaryOrg(s Summary) string {
	var b strings.Builder
	b.WriteString("| trades | wins | losses | win % | net P/L | profit factor |\n")
	b.WriteString("|--------+------+--------+-------+---------+---------------|\n")
	b.WriteString(fmt.Sprintf("| %d | %d | %d | %.2f | %.2f | %.2f |\n",
		s.Trades, s.Wins, s.Losses, s.WinRate, s.NetPL, s.ProfitFactor))
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
