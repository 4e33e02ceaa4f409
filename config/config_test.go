package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, []string{"EURUSD"}, cfg.Symbols)
	assert.Equal(t, "M1", cfg.Timeframe)
	assert.Equal(t, 0.5, cfg.Risk.RiskPerTradePct)
	assert.Equal(t, 2000, cfg.Engine.WarmupBars)
	assert.Equal(t, []string{"ema_cross", "oco_breakout", "range_fade", "turtle_dennis"}, cfg.StrategyNames())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"missing gateway", func(c *Config) { c.Server.BaseHTTP = "" }, "server.base_http is required"},
		{"no symbols", func(c *Config) { c.Symbols = nil }, "at least one symbol"},
		{"blank symbol", func(c *Config) { c.Symbols = []string{" "} }, "symbols must not be empty"},
		{"bad timeframe", func(c *Config) { c.Timeframe = "X5" }, "bad timeframe"},
		{"zero risk", func(c *Config) { c.Risk.RiskPerTradePct = 0 }, "risk_per_trade_pct must be positive"},
		{"risk above cap", func(c *Config) { c.Risk.RiskPerTradePct = 2 }, "exceeds risk.max_risk_pct"},
		{"negative fee", func(c *Config) { c.Risk.FeeBps = -1 }, "fee_bps"},
		{"zero reward", func(c *Config) { c.Risk.RewardRatio = 0 }, "reward_ratio"},
		{"bad pivots", func(c *Config) { c.Pivots.Left = 0 }, "pivots"},
		{"no cash", func(c *Config) { c.Broker.StartingCash = 0 }, "starting_cash"},
		{"no strategies", func(c *Config) { c.Strategies = nil }, "at least one strategy"},
		{"unknown strategy", func(c *Config) { c.Strategies["macd"] = nil }, "unknown strategy"},
		{"bad params", func(c *Config) { c.Strategies["ema_cross"]["fast"] = 100 }, "fast"},
		{"no log dir", func(c *Config) { c.Paths.LogDir = "" }, "paths.log_dir is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_http: http://gw:8000
  base_ws: ws://gw:8000
symbols: [EURUSD, GBPUSD]
timeframe: M5
risk:
  risk_per_trade_pct: 0.25
strategies:
  ema_cross: {fast: 8, slow: 21}
paths:
  log_dir: /var/log/trader
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://gw:8000", cfg.Server.BaseHTTP)
	assert.Equal(t, []string{"EURUSD", "GBPUSD"}, cfg.Symbols)
	assert.Equal(t, "M5", cfg.Timeframe)
	assert.Equal(t, 0.25, cfg.Risk.RiskPerTradePct)
	assert.Equal(t, 1.0, cfg.Risk.FeeBps, "unset fields keep defaults")
	assert.Equal(t, []string{"ema_cross"}, cfg.StrategyNames(), "strategies block replaces defaults")
	assert.Equal(t, "/var/log/trader/strategy_selection.json", cfg.SelectionPath())
}

func TestLoadFromFile_JSONAndRoundTrip(t *testing.T) {
	dir := t.TempDir()

	orig := Default()
	orig.Symbols = []string{"USDJPY"}
	orig.MetricsAddr = ":9100"

	for _, name := range []string{"config.json", "config.yml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, orig.SaveToFile(path))

		got, err := LoadFromFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, []string{"USDJPY"}, got.Symbols, name)
		assert.Equal(t, ":9100", got.MetricsAddr, name)
		assert.Equal(t, orig.StrategyNames(), got.StrategyNames(), name)
		assert.Equal(t, orig.Pivots, got.Pivots, name)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("symbols: [unterminated"), 0o644))
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "parse config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("symbols: []\n"), 0o644))
	_, err = LoadFromFile(invalid)
	assert.ErrorContains(t, err, "invalid config")
}

func TestDerived(t *testing.T) {
	cfg := Default()
	cfg.Paths.Selection = "/tmp/sel.json"
	assert.Equal(t, "/tmp/sel.json", cfg.SelectionPath())

	rm := cfg.RiskManager()
	assert.Equal(t, 2.0, rm.RewardRatio)
	assert.Equal(t, 120, rm.Pivots.MaxLookback)

	bt := cfg.BacktestParams()
	assert.Equal(t, 10_000.0, bt.StartingCash)
	assert.Equal(t, 14, bt.ATRPeriod)
}
