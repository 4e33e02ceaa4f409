package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/swingtrader/market"
)

// WSLive subscribes to the gateway's candle stream. The gateway re-sends the
// forming candle on every update, so a bar is only emitted once a candle with
// a later time arrives. Dropped connections are redialed with exponential
// backoff until ctx is done.
type WSLive struct {
	BaseURL    string
	Dialer     *websocket.Dialer
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Log        zerolog.Logger
}

var _ Live = (*WSLive)(nil)

func NewWSLive(baseURL string, log zerolog.Logger) *WSLive {
	return &WSLive{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Dialer:     websocket.DefaultDialer,
		MinBackoff: 500 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
		Log:        log,
	}
}

func (w *WSLive) streamURL(symbol, timeframe string) (string, error) {
	u, err := url.Parse(w.BaseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("live feed: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/stream/candles"
	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("timeframe", timeframe)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Stream starts the subscription. The returned error covers configuration
// problems only; connection failures are retried in the background.
func (w *WSLive) Stream(ctx context.Context, symbol, timeframe string) (<-chan market.Bar, error) {
	u, err := w.streamURL(symbol, timeframe)
	if err != nil {
		return nil, err
	}

	out := make(chan market.Bar, 16)
	log := w.Log.With().Str("symbol", symbol).Str("timeframe", timeframe).Logger()
	go w.run(ctx, u, out, log)
	return out, nil
}

func (w *WSLive) run(ctx context.Context, u string, out chan<- market.Bar, log zerolog.Logger) {
	defer close(out)

	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	var co coalescer
	bo := w.newBackOff()
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := dialer.DialContext(ctx, u, nil)
		if err != nil {
			wait := bo.NextBackOff()
			log.Warn().Err(err).Dur("retry_in", wait).Msg("live feed dial failed")
			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		log.Info().Str("url", u).Msg("live feed connected")
		bo.Reset()
		err = w.read(ctx, conn, &co, out, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		wait := bo.NextBackOff()
		log.Warn().Err(err).Dur("retry_in", wait).Msg("live feed disconnected")
		if !sleep(ctx, wait) {
			return
		}
	}
}

// newBackOff never gives up; the loop only ends with ctx.
func (w *WSLive) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.MinBackoff
	if bo.InitialInterval <= 0 {
		bo.InitialInterval = backoff.DefaultInitialInterval
	}
	if w.MaxBackoff > 0 {
		bo.MaxInterval = w.MaxBackoff
	}
	bo.RandomizationFactor = 0.2
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

type streamMsg struct {
	Candle *candle `json:"candle"`
}

func (w *WSLive) read(ctx context.Context, conn *websocket.Conn, co *coalescer, out chan<- market.Bar, log zerolog.Logger) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg streamMsg
		if err := json.Unmarshal(data, &msg); err != nil || msg.Candle == nil {
			log.Debug().Err(err).Msg("live feed: ignoring message")
			continue
		}
		b, err := msg.Candle.bar()
		if err != nil {
			log.Debug().Err(err).Msg("live feed: bad candle")
			continue
		}

		closed, ok := co.push(b)
		if !ok {
			continue
		}
		select {
		case out <- closed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// coalescer holds the forming candle and releases it once superseded by a
// later bucket.
type coalescer struct {
	pending market.Bar
	have    bool
}

func (c *coalescer) push(b market.Bar) (market.Bar, bool) {
	if !c.have {
		c.pending, c.have = b, true
		return market.Bar{}, false
	}
	switch {
	case b.Time > c.pending.Time:
		closed := c.pending
		c.pending = b
		return closed, true
	case b.Time == c.pending.Time:
		c.pending = b
	}
	return market.Bar{}, false
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
