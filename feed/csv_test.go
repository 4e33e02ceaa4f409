package feed

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swingtrader/market"
)

func TestReadCSV(t *testing.T) {
	t.Parallel()

	in := `time,open,high,low,close,volume
2023-11-14T22:14:20Z,2,3,1,2.5,10

1700000000,1,2,0.5,1.5
`
	bars, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, market.Bar{Time: 1700000000, Open: 1, High: 2, Low: 0.5, Close: 1.5}, bars[0])
	assert.Equal(t, market.Bar{Time: 1700000060, Open: 2, High: 3, Low: 1, Close: 2.5, Volume: 10}, bars[1])
}

func TestReadCSV_Errors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"1700000000,1,2,3\n",
		"1700000000,1,x,3,4\n",
		"never,1,2,3,4\n",
	} {
		_, err := ReadCSV(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	t.Parallel()

	bars := []market.Bar{
		{Time: 60, Open: 1, High: 2, Low: 0.5, Close: 1.25, Volume: 3},
		{Time: 120, Open: 1.25, High: 1.5, Low: 1, Close: 1.1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, bars))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, bars, got)
}

func TestCSVHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bars.csv")
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []market.Bar{{Time: 1}, {Time: 2}, {Time: 3}}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	bars, err := CSVHistory{Path: path}.Candles(context.Background(), "X", "M1", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(2), bars[0].Time)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("time,open,high,low,close\n"), 0o644))
	_, err = CSVHistory{Path: empty}.Candles(context.Background(), "X", "M1", 0)
	assert.True(t, errors.Is(err, ErrNoBars))

	_, err = CSVHistory{Path: filepath.Join(dir, "missing.csv")}.Candles(context.Background(), "X", "M1", 0)
	assert.Error(t, err)
}

func TestReplayAndStatic(t *testing.T) {
	t.Parallel()

	bars := []market.Bar{{Time: 1}, {Time: 2}, {Time: 3}}

	ch, err := (&Replay{Bars: bars, Delay: time.Millisecond}).Stream(context.Background(), "", "")
	require.NoError(t, err)
	var got []market.Bar
	for b := range ch {
		got = append(got, b)
	}
	assert.Equal(t, bars, got)

	h, err := Static{Bars: bars}.Candles(context.Background(), "", "", 2)
	require.NoError(t, err)
	assert.Equal(t, bars[1:], h)

	_, err = Static{Err: ErrNoBars}.Candles(context.Background(), "", "", 0)
	assert.ErrorIs(t, err, ErrNoBars)
}
