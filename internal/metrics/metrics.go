package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Recorder holds the engine's counters. Each Recorder registers its own
// collectors so tests can use a private registry.
type Recorder struct {
	BarsTotal          *prometheus.CounterVec
	SignalsTotal       *prometheus.CounterVec
	OrdersRejected     *prometheus.CounterVec
	TradesResolved     *prometheus.CounterVec
	EquityGauge        prometheus.Gauge
	HistoryFetchErrors *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		BarsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bars_total", Help: "Closed bars processed"},
			[]string{"symbol"},
		),
		SignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signals_total", Help: "Signals recorded"},
			[]string{"symbol", "strategy", "side"},
		),
		OrdersRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "orders_rejected_total", Help: "Orders refused by the broker"},
			[]string{"symbol", "reason"},
		),
		TradesResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "trades_resolved_total", Help: "Trades closed by stop or target"},
			[]string{"strategy", "outcome"},
		),
		EquityGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "account_equity", Help: "Paper account equity at the last mark"},
		),
		HistoryFetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "history_fetch_errors_total", Help: "Failed warm-up history requests"},
			[]string{"symbol"},
		),
	}
	reg.MustRegister(r.BarsTotal, r.SignalsTotal, r.OrdersRejected, r.TradesResolved, r.EquityGauge, r.HistoryFetchErrors)
	return r
}

func (r *Recorder) Bar(symbol string) { r.BarsTotal.WithLabelValues(symbol).Inc() }

func (r *Recorder) Signal(symbol, strategy, side string) {
	r.SignalsTotal.WithLabelValues(symbol, strategy, side).Inc()
}

func (r *Recorder) Rejected(symbol, reason string) {
	r.OrdersRejected.WithLabelValues(symbol, reason).Inc()
}

func (r *Recorder) Resolved(strategy, outcome string) {
	r.TradesResolved.WithLabelValues(strategy, outcome).Inc()
}

func (r *Recorder) Equity(v float64) { r.EquityGauge.Set(v) }

func (r *Recorder) HistoryError(symbol string) { r.HistoryFetchErrors.WithLabelValues(symbol).Inc() }

// Serve exposes g on addr at /metrics in the background. Close the returned
// server to stop it.
func Serve(addr string, g prometheus.Gatherer, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return srv
}
