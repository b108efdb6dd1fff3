package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"chat-widget/internal/infra/tracer"
)

// DefaultProbeTimeout bounds a connectivity check when none is configured.
const DefaultProbeTimeout = 5 * time.Second

// Pinger issues a bare request to an endpoint and reports the status.
type Pinger interface {
	Ping(ctx context.Context, endpoint *url.URL) (int, error)
}

// Prober checks whether the chat backend answers at all before the widget
// is shown.
type Prober struct {
	pinger  Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewProber creates a Prober. A non-positive timeout uses DefaultProbeTimeout.
func NewProber(pinger Pinger, timeout time.Duration, logger *slog.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prober{pinger: pinger, timeout: timeout, logger: logger}
}

// Check reports whether endpoint answered with a status below 500 within
// the probe timeout.
func (p *Prober) Check(ctx context.Context, endpoint *url.URL) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ctx, span := tracer.StartSpan(ctx, "probe.check")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("endpoint", endpoint.String()))

	status, err := p.pinger.Ping(ctx, endpoint)
	if err != nil {
		p.logger.Warn("connectivity probe failed", "endpoint", endpoint.String(), "error", err)
		tracer.RecordError(span, err)
		return false
	}
	span.SetAttributes(tracer.IntAttr("http.status_code", status))
	if status >= http.StatusInternalServerError {
		p.logger.Warn("connectivity probe got server error", "endpoint", endpoint.String(), "status", status)
		return false
	}
	tracer.SetOK(span)
	return true
}
