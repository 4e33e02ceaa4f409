package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/swingtrader/journal"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Inspect the signal logger's files",
	Long: `Read signals_state.json and levels.json from the log directory.

Examples:
  trader signals list --status open
  trader signals list --symbol EURUSD --limit 20 --org
  trader signals levels --symbol EURUSD`,
}

var signalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List signal records",
	Args:  cobra.NoArgs,
	RunE:  runSignalsList,
}

var signalsLevelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Show the levels of open signals",
	Args:  cobra.NoArgs,
	RunE:  runSignalsLevels,
}

var (
	signalsLimit  int
	signalsStatus string
	signalsSymbol string
	signalsOrg    bool
)

func init() {
	rootCmd.AddCommand(signalsCmd)
	signalsCmd.AddCommand(signalsListCmd)
	signalsCmd.AddCommand(signalsLevelsCmd)

	signalsCmd.PersistentFlags().StringVar(&signalsSymbol, "symbol", "", "only this symbol")
	signalsListCmd.Flags().IntVar(&signalsLimit, "limit", 200, "most recent N records (0 for all)")
	signalsListCmd.Flags().StringVar(&signalsStatus, "status", "", "open or closed")
	signalsListCmd.Flags().BoolVar(&signalsOrg, "org", false, "org-mode output instead of JSON")
}

func runSignalsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	switch signalsStatus {
	case "", journal.StatusOpen, journal.StatusClosed:
	default:
		return fmt.Errorf("bad --status %q (open or closed)", signalsStatus)
	}

	recs, err := journal.ReadState(filepath.Join(cfg.Paths.LogDir, journal.StateFile))
	if err != nil {
		return fmt.Errorf("read signals: %w", err)
	}
	recs = journal.FilterRecords(recs, signalsStatus, signalsSymbol, signalsLimit)

	if signalsOrg {
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatSignalsOrg(recs))
		return nil
	}
	return writeJSON(cmd, journal.State{Signals: recs})
}

func runSignalsLevels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lv, err := journal.ReadLevels(filepath.Join(cfg.Paths.LogDir, journal.LevelsFile))
	if err != nil {
		return fmt.Errorf("read levels: %w", err)
	}
	return writeJSON(cmd, filterLevels(lv, signalsSymbol))
}

func filterLevels(lv journal.Levels, symbol string) journal.Levels {
	if symbol == "" {
		return lv
	}
	out := journal.Levels{GeneratedAt: lv.GeneratedAt, Levels: []journal.Level{}}
	for _, l := range lv.Levels {
		if l.Symbol == symbol {
			out.Levels = append(out.Levels, l)
		}
	}
	return out
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
