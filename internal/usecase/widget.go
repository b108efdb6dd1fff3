package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"chat-widget/internal/domain"
	"chat-widget/internal/infra/config"
	"chat-widget/internal/infra/logger"
	"chat-widget/internal/usecase/eventbus"
)

// WidgetDeps are the collaborators a Widget is built from. Transport and
// Renderer are required; Pinger is required only when the probe is enabled.
type WidgetDeps struct {
	Transport domain.Transport
	Pinger    Pinger
	Renderer  domain.Renderer
	Bus       domain.EventBus // nil creates a bus owned by the widget
	Limiter   *rate.Limiter   // nil disables throttling
	Logger    *slog.Logger
}

// Widget is one embedded chat instance. It owns its endpoint, session and
// conversation state; two widgets in one process share nothing.
type Widget struct {
	id       string
	cfg      config.WidgetConfig
	signals  domain.EndpointConfig
	endpoint *url.URL

	session    *SessionTracker
	controller *Controller
	prober     *Prober
	hydrator   *Hydrator
	renderer   domain.Renderer
	bus        domain.EventBus
	ownsBus    bool
	logger     *slog.Logger

	mu        sync.Mutex
	started   bool
	available bool
	visible   bool
	hydrated  bool
	bg        sync.WaitGroup
}

// NewWidget resolves the endpoint once and assembles the widget.
func NewWidget(cfg config.WidgetConfig, deps WidgetDeps) (*Widget, error) {
	if deps.Transport == nil || deps.Renderer == nil {
		return nil, domain.NewDomainError("NewWidget", domain.ErrInvalidInput, "transport and renderer are required")
	}
	if cfg.Probe.Enabled && deps.Pinger == nil {
		return nil, domain.NewDomainError("NewWidget", domain.ErrInvalidInput, "probe enabled without a pinger")
	}

	id := uuid.NewString()
	log := logger.ForWidget(deps.Logger, id, "widget")

	w := &Widget{
		id:       id,
		cfg:      cfg,
		signals:  NewEndpointConfig(cfg.APIURL, cfg.PageURL, cfg.HostingPatterns),
		session:  NewSessionTracker(),
		renderer: deps.Renderer,
		bus:      deps.Bus,
		logger:   log,
	}
	w.endpoint = ResolveEndpoint(w.signals, PolicyFromConfig(cfg))
	if w.bus == nil {
		w.bus = eventbus.New(log)
		w.ownsBus = true
	}

	w.controller = NewController(deps.Transport, w.endpoint, w.session, deps.Renderer,
		WithEventBus(w.bus),
		WithRateLimiter(deps.Limiter),
		WithErrorMessage(cfg.ErrorMessage),
		WithWidgetID(id),
		WithControllerLogger(logger.ForWidget(deps.Logger, id, "controller")),
	)
	w.hydrator = NewHydrator(deps.Transport, deps.Renderer, logger.ForWidget(deps.Logger, id, "history"))
	if deps.Pinger != nil {
		w.prober = NewProber(deps.Pinger, cfg.Probe.Timeout, logger.ForWidget(deps.Logger, id, "probe"))
	}

	log.Info("widget created", "endpoint", w.endpoint.String())
	return w, nil
}

// Start runs the connectivity probe when enabled. A failed probe leaves the
// widget unavailable: it cannot be opened and refuses submissions.
func (w *Widget) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	available := true
	if w.cfg.Probe.Enabled {
		available = w.prober.Check(ctx, w.endpoint)
		w.publish(ctx, domain.EventProbeCompleted, domain.ProbePayload{Reachable: available})
	}

	w.mu.Lock()
	w.available = available
	w.mu.Unlock()

	if !available {
		w.logger.Warn("widget disabled: backend unreachable", "endpoint", w.endpoint.String())
		return domain.WrapOp("Widget.Start", domain.ErrProbeFailed)
	}
	return nil
}

// Toggle flips the chat window and returns the new visibility. It is a
// no-op returning false while the widget is unavailable.
func (w *Widget) Toggle(ctx context.Context) bool {
	return w.setVisible(ctx, func(cur bool) bool { return !cur })
}

// Open shows the chat window.
func (w *Widget) Open(ctx context.Context) bool {
	return w.setVisible(ctx, func(bool) bool { return true })
}

// Close hides the chat window.
func (w *Widget) Close(ctx context.Context) bool {
	return w.setVisible(ctx, func(bool) bool { return false })
}

func (w *Widget) setVisible(ctx context.Context, next func(cur bool) bool) bool {
	w.mu.Lock()
	if !w.available {
		w.mu.Unlock()
		return false
	}
	visible := next(w.visible)
	if w.visible == visible {
		w.mu.Unlock()
		return visible
	}
	w.visible = visible
	hydrate := visible && w.cfg.History.Enabled && !w.hydrated
	if hydrate {
		w.hydrated = true
		w.bg.Add(1)
	}
	w.mu.Unlock()

	w.renderer.OnVisibilityToggle(visible)
	w.publish(ctx, domain.EventVisibilityChanged, domain.VisibilityPayload{Visible: visible})

	if hydrate {
		go w.hydrate(ctx)
	}
	return visible
}

func (w *Widget) hydrate(ctx context.Context) {
	defer w.bg.Done()
	n, err := w.hydrator.Hydrate(ctx, w.endpoint, w.session.Token())
	if err != nil {
		return
	}
	w.publish(ctx, domain.EventHistoryLoaded, domain.CountPayload{Count: n})
}

// Hydrate replays history immediately, regardless of visibility.
func (w *Widget) Hydrate(ctx context.Context) (int, error) {
	n, err := w.hydrator.Hydrate(ctx, w.endpoint, w.session.Token())
	if err == nil {
		w.publish(ctx, domain.EventHistoryLoaded, domain.CountPayload{Count: n})
	}
	return n, err
}

// Submit forwards raw to the conversation controller.
func (w *Widget) Submit(ctx context.Context, raw string) (string, error) {
	w.mu.Lock()
	available := w.available
	w.mu.Unlock()
	if !available {
		return "", domain.WrapOp("Widget.Submit", domain.ErrWidgetHidden)
	}
	return w.controller.Submit(ctx, raw)
}

// Wait blocks until in-flight submissions and hydration have settled.
func (w *Widget) Wait() {
	w.controller.Wait()
	w.bg.Wait()
}

// Shutdown waits for background work, or for ctx to end, and then closes
// the widget's own event bus.
func (w *Widget) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("widget shutdown: %w", ctx.Err())
	}
	if w.ownsBus {
		w.bus.Close()
	}
	return err
}

// ID returns the widget instance identifier.
func (w *Widget) ID() string { return w.id }

// Endpoint returns a copy of the resolved endpoint.
func (w *Widget) Endpoint() *url.URL {
	u := *w.endpoint
	return &u
}

// Signals returns the page signals the endpoint was resolved from.
func (w *Widget) Signals() domain.EndpointConfig { return w.signals }

// Session returns the current session token and whether one is set.
func (w *Widget) Session() (string, bool) { return w.session.Get() }

// Visible reports whether the chat window is open.
func (w *Widget) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Available reports whether the widget started and passed its probe.
func (w *Widget) Available() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.available
}

// Bus returns the lifecycle event bus.
func (w *Widget) Bus() domain.EventBus { return w.bus }

func (w *Widget) publish(ctx context.Context, t domain.EventType, payload any) {
	w.bus.Publish(context.WithoutCancel(ctx), domain.NewEvent(t, w.id, "", payload))
}
