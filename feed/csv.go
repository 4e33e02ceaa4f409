package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rustyeddy/swingtrader/market"
)

// ReadCSV parses rows of
//
//	time,open,high,low,close[,volume]
//
// where time is RFC3339 or epoch seconds/milliseconds. A single header row
// is allowed and empty rows are skipped. Bars are returned sorted by time.
func ReadCSV(r io.Reader) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		bars     []market.Bar
		sawFirst bool
		line     int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}

		if !sawFirst {
			sawFirst = true
			if h := strings.ToLower(strings.TrimSpace(row[0])); h == "time" || h == "ts" {
				continue
			}
		}

		b, err := parseBarRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })
	return bars, nil
}

func parseBarRow(row []string) (market.Bar, error) {
	if len(row) < 5 {
		return market.Bar{}, fmt.Errorf("want at least 5 fields, got %d", len(row))
	}

	ts, err := ParseTimestamp(row[0])
	if err != nil {
		return market.Bar{}, err
	}

	var vals [5]float64
	n := 4
	if len(row) > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		s := strings.TrimSpace(row[i+1])
		if i == 4 && s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("bad number %q: %w", row[i+1], err)
		}
		vals[i] = v
	}

	return market.Bar{Time: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}, nil
}

// LoadCSV reads a bar file from disk.
func LoadCSV(path string) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// WriteCSV writes bars in the format ReadCSV accepts.
func WriteCSV(w io.Writer, bars []market.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := cw.Write([]string{
			strconv.FormatInt(b.Time, 10),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVHistory serves History requests from a single bar file regardless of
// symbol.
type CSVHistory struct {
	Path string
}

var _ History = CSVHistory{}

func (h CSVHistory) Candles(ctx context.Context, _, _ string, limit int) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bars, err := LoadCSV(h.Path)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", h.Path, ErrNoBars)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}
