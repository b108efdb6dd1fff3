package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"chat-widget/internal/adapter/transport"
	"chat-widget/internal/domain"
	"chat-widget/internal/infra/config"
	"chat-widget/internal/infra/logger"
	"chat-widget/internal/infra/metrics"
	"chat-widget/internal/infra/tracer"
	"chat-widget/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// loadConfig reads the config file and applies the command-line overrides
// the user actually set.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	pf := cmd.Flags()
	if pf.Changed("api-url") {
		cfg.Widget.APIURL = flags.apiURL
	}
	if pf.Changed("page-url") {
		cfg.Widget.PageURL = flags.pageURL
	}
	if pf.Changed("credentials") {
		cfg.Widget.Credentials = flags.credentials
	}
	if pf.Changed("probe") {
		cfg.Widget.Probe.Enabled = flags.probe
	}
	if pf.Changed("metrics-addr") {
		cfg.Metrics.Addr = flags.metricsAddr
		cfg.Metrics.Enabled = flags.metricsAddr != ""
	}
	if pf.Changed("log-level") {
		cfg.Logger.Level = flags.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// app holds one wired widget and everything that must be released with it.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	transport *transport.HTTPTransport
	metrics   *metrics.Metrics
	widget    *usecase.Widget

	cleanups []func()
}

// newApp wires logging, tracing, transport, metrics and a widget that
// renders to renderer.
func newApp(ctx context.Context, cfg *config.Config, renderer domain.Renderer) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.wire(ctx, renderer); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, renderer domain.Renderer) error {
	cfg := a.cfg

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.log = log
	a.onClose(func() { _ = logCloser() })

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	a.onClose(func() { _ = tracerShutdown(context.WithoutCancel(ctx)) })

	a.metrics = metrics.New()

	client, err := transport.NewHTTPClient(cfg.Transport, cfg.Widget.Credentials)
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}
	signals := usecase.NewEndpointConfig(cfg.Widget.APIURL, cfg.Widget.PageURL, cfg.Widget.HostingPatterns)
	opts := []transport.Option{
		transport.WithClient(client),
		transport.WithMaxResponseBytes(cfg.Transport.MaxResponseBytes),
		transport.WithLogger(log.With("component", "transport")),
		transport.WithOriginDomain(usecase.OriginHint(signals, cfg.Widget.OriginHint)),
	}
	if cfg.Transport.CircuitBreaker.Enabled {
		opts = append(opts, transport.WithCircuitBreaker(cfg.Transport.CircuitBreaker, a.metrics.SetCircuitState))
	}
	a.transport = transport.New(opts...)
	if cfg.Transport.CircuitBreaker.Enabled {
		a.metrics.SetCircuitState(a.transport.BreakerState())
	}

	var limiter *rate.Limiter
	if rl := cfg.Transport.RateLimit; rl.Enabled {
		limiter = rate.NewLimiter(rate.Limit(rl.PerMinute/60), rl.Burst)
	}

	widget, err := usecase.NewWidget(cfg.Widget, usecase.WidgetDeps{
		Transport: a.transport,
		Pinger:    a.transport,
		Renderer:  renderer,
		Limiter:   limiter,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("widget: %w", err)
	}
	a.widget = widget
	a.onClose(a.metrics.Subscribe(a.widget.Bus()))
	a.onClose(func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.widget.Shutdown(sctx); err != nil {
			log.Warn("widget shutdown", "error", err)
		}
	})

	if cfg.Metrics.Enabled {
		mctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := a.metrics.Serve(mctx, cfg.Metrics.Addr, log); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		a.onClose(func() {
			cancel()
			<-done
		})
	}
	return nil
}

func (a *app) onClose(fn func()) {
	a.cleanups = append(a.cleanups, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}
