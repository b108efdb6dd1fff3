package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/domain"
	"chat-widget/internal/usecase/eventbus"
)

func TestObserveSubmissions(t *testing.T) {
	m := New()
	bus := eventbus.New(nil)
	m.Subscribe(bus)

	ctx := context.Background()
	bus.Publish(ctx, domain.NewEvent(domain.EventSubmissionResolved, "w", "p1", domain.SubmissionPayload{Outcome: "success", DurationS: 0.2}))
	bus.Publish(ctx, domain.NewEvent(domain.EventSubmissionFailed, "w", "p2", domain.SubmissionPayload{Outcome: "http_error", Reason: "server_status", StatusCode: 502}))
	bus.Publish(ctx, domain.NewEvent(domain.EventSubmissionFailed, "w", "p3", domain.SubmissionPayload{Outcome: "network_error", Reason: "timeout"}))
	bus.Publish(ctx, domain.NewEvent(domain.EventSubmissionStarted, "w", "p4", nil))
	bus.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("http_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("network_error")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("server_status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("timeout")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.failures))
}

func TestObserveHistoryProbeSession(t *testing.T) {
	m := New()
	bus := eventbus.New(nil)
	m.Subscribe(bus)

	ctx := context.Background()
	bus.Publish(ctx, domain.NewEvent(domain.EventHistoryLoaded, "w", "", domain.CountPayload{Count: 3}))
	bus.Publish(ctx, domain.NewEvent(domain.EventProbeCompleted, "w", "", domain.ProbePayload{Reachable: true}))
	bus.Publish(ctx, domain.NewEvent(domain.EventProbeCompleted, "w", "", domain.ProbePayload{Reachable: false}))
	bus.Publish(ctx, domain.NewEvent(domain.EventSessionUpdated, "w", "p1", nil))
	bus.Publish(ctx, domain.NewEvent(domain.EventSessionUpdated, "w", "p2", nil))
	bus.Close()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.historyEntries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues("reachable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues("unreachable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionUpdates))
}

func TestSetCircuitState(t *testing.T) {
	m := New()
	m.SetCircuitState("open")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.circuitState.WithLabelValues("open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.circuitState.WithLabelValues("closed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.circuitState.WithLabelValues("half-open")))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.sessionUpdates.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.sessionUpdates))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.submissions.WithLabelValues("success").Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `chatwidget_submissions_total{outcome="success"} 1`), string(body))
}

func TestDurationHistogramObservesSeconds(t *testing.T) {
	m := New()
	bus := eventbus.New(nil)
	m.Subscribe(bus)

	ctx := context.Background()
	for _, d := range []float64{0.05, 0.3, 2.5} {
		bus.Publish(ctx, domain.NewEvent(domain.EventSubmissionResolved, "w", "p", domain.SubmissionPayload{Outcome: "success", DurationS: d}))
	}
	bus.Close()

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	var hist *dto.Histogram
	for _, f := range families {
		if f.GetName() == "chatwidget_request_duration_seconds" {
			require.Len(t, f.GetMetric(), 1)
			hist = f.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, hist, "duration histogram not gathered")
	assert.Equal(t, uint64(3), hist.GetSampleCount())
	assert.InDelta(t, 2.85, hist.GetSampleSum(), 1e-9)
}
