package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/swingtrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the SQLite signal journal",
	Long: `Query and display signal records mirrored into the SQLite journal.

Subcommands:
  signal - Get details of a specific signal by ID
  today  - List signals closed today
  day    - List signals closed on a specific day
  open   - List signals that are still open

Examples:
  trader journal signal 01HZX3...
  trader journal today
  trader journal day 2024-01-15
  trader journal open --symbol EURUSD`,
}

var journalSignalCmd = &cobra.Command{
	Use:   "signal <signal-id>",
	Short: "Get details of a specific signal",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSignal,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List signals closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List signals closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "List open signals",
	Args:  cobra.NoArgs,
	RunE:  runJournalOpen,
}

var (
	journalDBPath string
	journalSymbol string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalSignalCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalOpenCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
	journalOpenCmd.Flags().StringVar(&journalSymbol, "symbol", "", "only this symbol")
}

func openJournal(cmd *cobra.Command) (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.Paths.JournalDB
	}
	if path == "" {
		return nil, fmt.Errorf("no journal DB configured (paths.journal_db or --db)")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalSignal(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetSignal(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get signal: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatSignalOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return printClosedOn(cmd, time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return printClosedOn(cmd, args[0])
}

func printClosedOn(cmd *cobra.Command, day string) error {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListSignalsClosedBetween(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("query signals: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, journal.FormatSummaryOrg(journal.Summarize(recs)))
	fmt.Fprintln(out, journal.FormatSignalsOrg(recs))
	return nil
}

func runJournalOpen(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListOpenSignals(cmd.Context(), journalSymbol)
	if err != nil {
		return fmt.Errorf("query signals: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatSignalsOrg(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
