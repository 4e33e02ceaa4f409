package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/swingtrader/selection"
	"github.com/rustyeddy/swingtrader/strategies"
)

var selectionCmd = &cobra.Command{
	Use:   "selection",
	Short: "Show or change which strategies may open trades",
	Long: `The selection file is re-read by a running engine, so changes take
effect on the next bar. An empty selection enables every strategy.

Examples:
  trader selection get
  trader selection set ema_cross turtle_dennis
  trader selection set            # enable all`,
}

var selectionGetCmd = &cobra.Command{
	Use:   "get",
	Short: "List enabled strategies",
	Args:  cobra.NoArgs,
	RunE:  runSelectionGet,
}

var selectionSetCmd = &cobra.Command{
	Use:   "set [strategy...]",
	Short: "Replace the enabled set",
	RunE:  runSelectionSet,
}

func init() {
	rootCmd.AddCommand(selectionCmd)
	selectionCmd.AddCommand(selectionGetCmd)
	selectionCmd.AddCommand(selectionSetCmd)
}

func openSelection(cmd *cobra.Command) (*selection.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return selection.Open(cfg.SelectionPath(), zerolog.Nop())
}

func runSelectionGet(cmd *cobra.Command, args []string) error {
	sel, err := openSelection(cmd)
	if err != nil {
		return err
	}
	names := sel.All()
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(empty: all strategies enabled)")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
	return nil
}

func runSelectionSet(cmd *cobra.Command, args []string) error {
	known := map[string]bool{}
	for _, n := range strategies.Names() {
		known[n] = true
	}
	for _, a := range args {
		if !known[a] {
			return fmt.Errorf("unknown strategy %q (supported: %s)", a, strings.Join(strategies.Names(), ", "))
		}
	}

	sel, err := openSelection(cmd)
	if err != nil {
		return err
	}
	if err := sel.Set(args); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %d strategies to %s\n", len(args), sel.Path())
	return nil
}
