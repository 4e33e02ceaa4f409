package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Swing-trading signal engine with a paper broker",
	Long: `Trader watches bar streams from a market-data gateway, runs a set of
signal strategies over them and paper-trades every signal with pivot-anchored
stops and fixed-fraction sizing.

It provides tools for:
  - Running the live paper-trading engine
  - Backtesting strategies over gateway history or CSV bars
  - Enabling and disabling strategies while the engine runs
  - Inspecting signals, levels and the SQLite journal`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var cfgFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "path to config file (YAML or JSON)")
}

// loadConfig reads the config file. The default path may be absent, in which
// case built-in defaults are used; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFromFile(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}
