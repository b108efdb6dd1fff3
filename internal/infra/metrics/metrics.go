package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chat-widget/internal/domain"
	"chat-widget/internal/infra/middleware"
)

// Metrics holds the collectors of one widget process. Each instance owns its
// registry so several widgets can coexist in one process or test binary.
type Metrics struct {
	Registry *prometheus.Registry

	submissions    *prometheus.CounterVec
	failures       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	historyEntries prometheus.Counter
	probes         *prometheus.CounterVec
	sessionUpdates prometheus.Counter
	circuitState   *prometheus.GaugeVec
}

var circuitStates = []string{"closed", "half-open", "open"}

// New registers the widget collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatwidget_submissions_total",
			Help: "Resolved submissions by outcome (success, http_error, network_error)",
		}, []string{"outcome"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatwidget_failures_total",
			Help: "Failed submissions by reason (server_status, timeout, connection, ...)",
		}, []string{"reason"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatwidget_request_duration_seconds",
			Help:    "Time from submission to resolution",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		historyEntries: f.NewCounter(prometheus.CounterOpts{
			Name: "chatwidget_history_entries_total",
			Help: "History entries rendered during hydration",
		}),
		probes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chatwidget_probe_total",
			Help: "Connectivity probe results (reachable, unreachable)",
		}, []string{"result"}),
		sessionUpdates: f.NewCounter(prometheus.CounterOpts{
			Name: "chatwidget_session_updates_total",
			Help: "Session token replacements",
		}),
		circuitState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chatwidget_circuit_breaker_state",
			Help: "Send circuit breaker state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),
	}
}

// Subscribe feeds the collectors from bus and returns the unsubscribe function.
func (m *Metrics) Subscribe(bus domain.EventBus) func() {
	return bus.SubscribeAll(m.observe)
}

func (m *Metrics) observe(_ context.Context, ev domain.Event) {
	switch ev.Type {
	case domain.EventSubmissionResolved, domain.EventSubmissionFailed:
		var p domain.SubmissionPayload
		if err := ev.DecodePayload(&p); err != nil || p.Outcome == "" {
			return
		}
		m.submissions.WithLabelValues(p.Outcome).Inc()
		if p.Reason != "" {
			m.failures.WithLabelValues(p.Reason).Inc()
		}
		m.duration.WithLabelValues(p.Outcome).Observe(p.DurationS)
	case domain.EventHistoryLoaded:
		var p domain.CountPayload
		if err := ev.DecodePayload(&p); err == nil {
			m.historyEntries.Add(float64(p.Count))
		}
	case domain.EventProbeCompleted:
		var p domain.ProbePayload
		if err := ev.DecodePayload(&p); err != nil {
			return
		}
		result := "unreachable"
		if p.Reachable {
			result = "reachable"
		}
		m.probes.WithLabelValues(result).Inc()
	case domain.EventSessionUpdated:
		m.sessionUpdates.Inc()
	}
}

// SetCircuitState records the active breaker state.
func (m *Metrics) SetCircuitState(state string) {
	for _, s := range circuitStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		m.circuitState.WithLabelValues(s).Set(v)
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Scrape limits per client on the /metrics endpoint.
const (
	scrapesPerMinute = 120
	scrapeBurst      = 10
)

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", middleware.Chain(m.Handler(),
		middleware.Recover(logger),
		middleware.SecurityHeaders,
		middleware.RateLimit(ctx, scrapesPerMinute, scrapeBurst),
	))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("metrics listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

