package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/journal"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/selection"
)

func TestDayBounds(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	start, end, err := dayBounds(loc, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(loc, "15/01/2024")
	assert.Error(t, err)
}

func TestSeedSelection(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), selection.DefaultFile)
	sel, err := selection.Open(path, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, seedSelection(sel, []string{"ema_cross", "range_fade"}, zerolog.Nop()))
	assert.Equal(t, []string{"ema_cross", "range_fade"}, sel.All())

	// an existing selection is left alone
	require.NoError(t, sel.Set([]string{"turtle_dennis"}))
	require.NoError(t, seedSelection(sel, []string{"ema_cross"}, zerolog.Nop()))
	assert.Equal(t, []string{"turtle_dennis"}, sel.All())
}

func TestFilterLevels(t *testing.T) {
	t.Parallel()

	lv := journal.Levels{
		GeneratedAt: 10,
		Levels: []journal.Level{
			{ID: "a", Symbol: "EURUSD"},
			{ID: "b", Symbol: "GBPUSD"},
		},
	}

	assert.Equal(t, lv, filterLevels(lv, ""))

	got := filterLevels(lv, "GBPUSD")
	require.Len(t, got.Levels, 1)
	assert.Equal(t, "b", got.Levels[0].ID)
	assert.Equal(t, 10.0, got.GeneratedAt)

	assert.Empty(t, filterLevels(lv, "USDJPY").Levels)
}

func TestFetchToCSV(t *testing.T) {
	t.Parallel()

	h := feed.Static{Bars: []market.Bar{
		{Time: 3600, Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{Time: 7200, Open: 1.5, High: 2, Low: 1, Close: 1.8},
		{Time: 10800, Open: 1.8, High: 2.2, Low: 1.7, Close: 2},
	}}

	var buf bytes.Buffer
	n, err := fetchToCSV(context.Background(), h, "EURUSD", "H1", 10,
		time.Unix(7200, 0), time.Unix(10800, 0), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bars, err := feed.ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(7200), bars[0].Time)

	_, err = fetchToCSV(context.Background(), feed.Static{Err: feed.ErrNoBars}, "EURUSD", "H1", 10,
		time.Time{}, time.Time{}, &buf)
	assert.ErrorIs(t, err, feed.ErrNoBars)
}

func TestParseRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to string
		wantErr  bool
	}{
		{"open", "", "", false},
		{"both", "2024-01-01T00:00:00Z", "2024-02-01T00:00:00Z", false},
		{"reversed", "2024-02-01T00:00:00Z", "2024-01-01T00:00:00Z", true},
		{"bad from", "yesterday", "", true},
		{"bad to", "", "2024-02-01", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := parseRange(tt.from, tt.to)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckReplay(t *testing.T) {
	t.Parallel()

	assert.NoError(t, checkReplay("", []string{"EURUSD", "GBPUSD"}))
	assert.NoError(t, checkReplay("bars.csv", []string{"EURUSD"}))
	assert.Error(t, checkReplay("bars.csv", []string{"EURUSD", "GBPUSD"}))
}
