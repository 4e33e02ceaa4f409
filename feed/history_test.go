package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPHistory_Candles(t *testing.T) {
	t.Parallel()

	var gotPath, gotTF, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTF = r.URL.Query().Get("timeframe")
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		// out of order, mixed time encodings
		_, _ = w.Write([]byte(`[
			{"time": 1700000120000, "open": 3, "high": 4, "low": 2, "close": 3.5, "tick_volume": 7},
			{"time": "2023-11-14T22:13:20Z", "open": 1, "high": 2, "low": 0.5, "close": 1.5},
			{"time": 1700000060, "open": 2, "high": 3, "low": 1, "close": 2.5, "real_volume": 9}
		]`))
	}))
	defer srv.Close()

	h := NewHTTPHistory(srv.URL + "/")
	bars, err := h.Candles(context.Background(), "EURUSD", "M1", 3)
	require.NoError(t, err)

	assert.Equal(t, "/candles/EURUSD", gotPath)
	assert.Equal(t, "M1", gotTF)
	assert.Equal(t, "3", gotLimit)

	require.Len(t, bars, 3)
	assert.Equal(t, int64(1700000000), bars[0].Time)
	assert.Equal(t, int64(1700000060), bars[1].Time)
	assert.Equal(t, int64(1700000120), bars[2].Time)
	assert.Equal(t, 9.0, bars[1].Volume)
	assert.Equal(t, 7.0, bars[2].Volume)
}

func TestHTTPHistory_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		noBars  bool
		wantMsg string
	}{
		{name: "server error", status: http.StatusBadGateway, body: "terminal offline", wantMsg: "terminal offline"},
		{name: "empty", status: http.StatusOK, body: "[]", noBars: true},
		{name: "bad json", status: http.StatusOK, body: "{", wantMsg: "decode"},
		{name: "bad time", status: http.StatusOK, body: `[{"time": "yesterday"}]`, wantMsg: "candle 0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPHistory(srv.URL).Candles(context.Background(), "EURUSD", "M1", 10)
			require.Error(t, err)
			if tt.noBars {
				assert.True(t, errors.Is(err, ErrNoBars))
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{"1700000000", 1700000000},
		{"1700000000000", 1700000000},
		{"1700000000.5", 1700000000},
		{"2023-11-14T22:13:20Z", 1700000000},
		{"2023-11-14T22:13:20", 1700000000},
		{"2023-11-14 22:13:20", 1700000000},
		{"2023-11-14T23:13:20+01:00", 1700000000},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseTimestamp("not a time")
	assert.Error(t, err)
}
