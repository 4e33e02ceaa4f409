package metrics

import (
	"bytes"
	"io"
	"net"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()

	mfs, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				sum += c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				sum += g.GetValue()
			}
		}
		return sum
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	r := New(reg)

	r.Bar("EURUSD")
	r.Bar("EURUSD")
	r.Signal("EURUSD", "ema_cross", "BUY")
	r.Rejected("EURUSD", "insufficient_cash")
	r.Resolved("ema_cross", "TP")
	r.Equity(10123.5)
	r.HistoryError("EURUSD")

	assert.Equal(t, 2.0, counterValue(t, reg, "bars_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "signals_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "orders_rejected_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "trades_resolved_total"))
	assert.Equal(t, 10123.5, counterValue(t, reg, "account_equity"))
	assert.Equal(t, 1.0, counterValue(t, reg, "history_fetch_errors_total"))
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg).Bar("GBPUSD")

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `bars_total{symbol="GBPUSD"} 1`)
}

func TestServe(t *testing.T) {
	t.Parallel()

	var out syncBuffer
	srv := Serve("127.0.0.1:0", prometheus.NewRegistry(), zerolog.New(&out))
	require.NotNil(t, srv)
	assert.NoError(t, srv.Close())

	// a clean shutdown is not an error
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, out.String())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServe_LogsBindFailure(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var out syncBuffer
	srv := Serve(ln.Addr().String(), prometheus.NewRegistry(), zerolog.New(&out))
	defer srv.Close()

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("metrics server stopped"))
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), ln.Addr().String())
}
