package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/swingtrader/market"
)

func candleMsg(ts int64, close float64) string {
	return fmt.Sprintf(`{"candle":{"time":%d,"open":%g,"high":%g,"low":%g,"close":%g}}`, ts, close, close+1, close-1, close)
}

// wsServer serves each connection the next script of messages, then hangs
// up.
func wsServer(t *testing.T, scripts ...[]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var conns atomic.Int32
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream/candles" || r.URL.Query().Get("symbol") != "EURUSD" {
			http.NotFound(w, r)
			return
		}
		n := int(conns.Add(1)) - 1
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		if n >= len(scripts) {
			// idle until the client goes away
			_, _, _ = c.ReadMessage()
			return
		}
		for _, m := range scripts[n] {
			if err := c.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func collect(t *testing.T, ch <-chan market.Bar, n int) []market.Bar {
	t.Helper()

	var out []market.Bar
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case b, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, b)
		case <-timeout:
			t.Fatalf("timed out after %d of %d bars", len(out), n)
		}
	}
	return out
}

func TestWSLive_EmitsClosedBarsOnly(t *testing.T) {
	t.Parallel()

	srv, _ := wsServer(t, []string{
		candleMsg(60, 1),
		candleMsg(60, 1.5), // forming update replaces
		`{"hello":"world"}`,
		"not json",
		candleMsg(120, 2),
		candleMsg(30, 9), // stale
		candleMsg(180, 3),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	live := NewWSLive("http://"+srv.Listener.Addr().String(), zerolog.Nop())
	live.MinBackoff = 10 * time.Millisecond
	ch, err := live.Stream(ctx, "EURUSD", "M1")
	require.NoError(t, err)

	bars := collect(t, ch, 2)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(60), bars[0].Time)
	assert.Equal(t, 1.5, bars[0].Close)
	assert.Equal(t, int64(120), bars[1].Time)

	cancel()
	for range ch {
	}
}

func TestWSLive_Reconnects(t *testing.T) {
	t.Parallel()

	srv, conns := wsServer(t,
		[]string{candleMsg(60, 1), candleMsg(120, 2)},
		[]string{candleMsg(120, 2.5), candleMsg(180, 3)},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	live := NewWSLive(srv.URL, zerolog.Nop())
	live.MinBackoff = 10 * time.Millisecond
	ch, err := live.Stream(ctx, "EURUSD", "M1")
	require.NoError(t, err)

	bars := collect(t, ch, 2)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(60), bars[0].Time)
	assert.Equal(t, int64(120), bars[1].Time)
	assert.Equal(t, 2.5, bars[1].Close, "pending bar survives the reconnect")
	assert.GreaterOrEqual(t, conns.Load(), int32(2))

	cancel()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}

func TestWSLive_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewWSLive("ftp://example.com", zerolog.Nop()).Stream(context.Background(), "EURUSD", "M1")
	assert.Error(t, err)
}

func TestWSLive_StreamURL(t *testing.T) {
	t.Parallel()

	u, err := NewWSLive("https://gw.local/api/", zerolog.Nop()).streamURL("EUR USD", "H1")
	require.NoError(t, err)
	assert.Equal(t, "wss://gw.local/api/stream/candles?symbol=EUR+USD&timeframe=H1", u)
}

func TestCoalescer(t *testing.T) {
	t.Parallel()

	var c coalescer
	_, ok := c.push(market.Bar{Time: 10, Close: 1})
	assert.False(t, ok)
	_, ok = c.push(market.Bar{Time: 10, Close: 2})
	assert.False(t, ok)
	_, ok = c.push(market.Bar{Time: 5, Close: 3})
	assert.False(t, ok)

	b, ok := c.push(market.Bar{Time: 20, Close: 4})
	require.True(t, ok)
	assert.Equal(t, market.Bar{Time: 10, Close: 2}, b)
}

func TestWSLive_BackOff(t *testing.T) {
	t.Parallel()

	live := &WSLive{MinBackoff: time.Second, MaxBackoff: 10 * time.Second}
	bo := live.newBackOff()

	first := bo.NextBackOff()
	assert.GreaterOrEqual(t, first, 800*time.Millisecond)
	assert.LessOrEqual(t, first, 1200*time.Millisecond)

	for i := 0; i < 50; i++ {
		d := bo.NextBackOff()
		require.NotEqual(t, backoff.Stop, d, "never gives up")
		assert.LessOrEqual(t, d, 12*time.Second)
	}

	bo.Reset()
	assert.LessOrEqual(t, bo.NextBackOff(), 1200*time.Millisecond)

	zero := (&WSLive{}).newBackOff()
	assert.Equal(t, backoff.DefaultInitialInterval, zero.InitialInterval)
}
