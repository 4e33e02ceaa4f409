package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/rustyeddy/swingtrader/engine"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/risk"
	"github.com/rustyeddy/swingtrader/selection"
	"github.com/rustyeddy/swingtrader/strategies"
)

// Config is the complete trader configuration.
type Config struct {
	Server      ServerConfig                 `json:"server" yaml:"server"`
	Symbols     []string                     `json:"symbols" yaml:"symbols"`
	Timeframe   string                       `json:"timeframe" yaml:"timeframe"`
	Risk        RiskConfig                   `json:"risk" yaml:"risk"`
	Pivots      risk.PivotConfig             `json:"pivots" yaml:"pivots"`
	Broker      BrokerConfig                 `json:"broker" yaml:"broker"`
	Engine      engine.Config                `json:"engine" yaml:"engine"`
	Backtest    BacktestConfig               `json:"backtest" yaml:"backtest"`
	Strategies  map[string]strategies.Params `json:"strategies" yaml:"strategies"`
	Paths       PathsConfig                  `json:"paths" yaml:"paths"`
	Log         LogConfig                    `json:"log" yaml:"log"`
	MetricsAddr string                       `json:"metrics_addr" yaml:"metrics_addr"`
}

// ServerConfig locates the market-data gateway.
type ServerConfig struct {
	BaseHTTP string `json:"base_http" yaml:"base_http"`
	BaseWS   string `json:"base_ws" yaml:"base_ws"`
}

// RiskConfig percentages are in percent: 0.5 means 0.5%.
type RiskConfig struct {
	MaxRiskPct      float64 `json:"max_risk_pct" yaml:"max_risk_pct"`
	RiskPerTradePct float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct"`
	FeeBps          float64 `json:"fee_bps" yaml:"fee_bps"`
	RewardRatio     float64 `json:"reward_ratio" yaml:"reward_ratio"`
}

type BrokerConfig struct {
	StartingCash float64 `json:"starting_cash" yaml:"starting_cash"`
}

type BacktestConfig struct {
	OutDir       string `json:"out_dir" yaml:"out_dir"`
	HistoryLimit int    `json:"history_limit" yaml:"history_limit"`
	ATRPeriod    int    `json:"atr_period" yaml:"atr_period"`
}

// PathsConfig holds on-disk locations. Selection defaults to
// strategy_selection.json inside LogDir.
type PathsConfig struct {
	LogDir    string `json:"log_dir" yaml:"log_dir"`
	JournalDB string `json:"journal_db,omitempty" yaml:"journal_db,omitempty"`
	Selection string `json:"selection,omitempty" yaml:"selection,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// LoadFromFile loads configuration from a file, trying YAML first and then
// JSON. Missing sections keep their defaults; a strategies block replaces
// the default set entirely.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := parse(data, yaml.Unmarshal)
	if err != nil {
		cfg, err = parse(data, json.Unmarshal)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parse(data []byte, unmarshal func([]byte, any) error) (*Config, error) {
	cfg := Default()
	defaults := cfg.Strategies
	cfg.Strategies = nil

	if err := unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Strategies == nil {
		cfg.Strategies = defaults
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.BaseHTTP == "" {
		return fmt.Errorf("server.base_http is required")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	for _, s := range c.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("symbols must not be empty")
		}
	}
	if _, err := market.TimeframeSeconds(c.Timeframe); err != nil {
		return err
	}
	if c.Risk.RiskPerTradePct <= 0 {
		return fmt.Errorf("risk.risk_per_trade_pct must be positive")
	}
	if c.Risk.MaxRiskPct > 0 && c.Risk.RiskPerTradePct > c.Risk.MaxRiskPct {
		return fmt.Errorf("risk.risk_per_trade_pct (%v) exceeds risk.max_risk_pct (%v)", c.Risk.RiskPerTradePct, c.Risk.MaxRiskPct)
	}
	if c.Risk.FeeBps < 0 {
		return fmt.Errorf("risk.fee_bps must not be negative")
	}
	if c.Risk.RewardRatio <= 0 {
		return fmt.Errorf("risk.reward_ratio must be positive")
	}
	if c.Pivots.Left < 1 || c.Pivots.Right < 1 || c.Pivots.MaxLookback < 1 {
		return fmt.Errorf("pivots.left, pivots.right and pivots.max_lookback must be positive")
	}
	if c.Broker.StartingCash <= 0 {
		return fmt.Errorf("broker.starting_cash must be positive")
	}
	if c.Engine.WarmupBars < 0 || c.Engine.HistoryLimit < 0 {
		return fmt.Errorf("engine.warmup_bars and engine.history_limit must not be negative")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	if _, err := strategies.BuildAll(c.Strategies); err != nil {
		return err
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	return nil
}

// StrategyNames returns the configured strategy names, sorted.
func (c *Config) StrategyNames() []string {
	built, err := strategies.BuildAll(c.Strategies)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(built))
	for n := range built {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SelectionPath is where the strategy selection file lives.
func (c *Config) SelectionPath() string {
	if c.Paths.Selection != "" {
		return c.Paths.Selection
	}
	return filepath.Join(c.Paths.LogDir, selection.DefaultFile)
}

// RiskManager builds the stop/target placer from the risk and pivots blocks.
func (c *Config) RiskManager() *risk.Manager {
	return &risk.Manager{RewardRatio: c.Risk.RewardRatio, Pivots: c.Pivots}
}

// BacktestParams maps the shared blocks onto backtest.Config.
func (c *Config) BacktestParams() backtest.Config {
	return backtest.Config{
		StartingCash:    c.Broker.StartingCash,
		FeeBps:          c.Risk.FeeBps,
		RiskPerTradePct: c.Risk.RiskPerTradePct,
		RewardRatio:     c.Risk.RewardRatio,
		ATRPeriod:       c.Backtest.ATRPeriod,
	}
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseHTTP: "http://localhost:8000",
			BaseWS:   "ws://localhost:8000",
		},
		Symbols:   []string{"EURUSD"},
		Timeframe: "M1",
		Risk: RiskConfig{
			MaxRiskPct:      1.0,
			RiskPerTradePct: 0.5,
			FeeBps:          1.0,
			RewardRatio:     risk.DefaultRewardRatio,
		},
		Pivots: risk.DefaultPivotConfig(),
		Broker: BrokerConfig{StartingCash: 10_000},
		Engine: engine.DefaultConfig(),
		Backtest: BacktestConfig{
			OutDir:       "./backtests",
			HistoryLimit: backtest.DefaultHistoryLimit,
			ATRPeriod:    14,
		},
		Strategies: map[string]strategies.Params{
			strategies.EMACrossName:     {"fast": 21, "slow": 55},
			strategies.RangeFadeName:    {"lookback": 50, "z": 1.5},
			strategies.OCOBreakoutName:  {"lookback": 30},
			strategies.TurtleDennisName: {"entry_channel": 55, "exit_channel": 20, "atr_period": 20, "atr_mult": 2.0},
		},
		Paths: PathsConfig{
			LogDir:    "./logs",
			JournalDB: "./logs/journal.sqlite",
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}
