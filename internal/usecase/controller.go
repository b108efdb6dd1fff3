package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"chat-widget/internal/domain"
	"chat-widget/internal/infra/config"
	"chat-widget/internal/infra/tracer"
)

// OutcomeRateLimited labels submissions refused by the client-side throttle.
const OutcomeRateLimited = "rate_limited"

// Controller turns user submissions into backend requests and reports
// their lifecycle to a Renderer. Each submission resolves on its own
// goroutine and is matched to its pending marker by ID, so overlapping
// submissions may complete in any order.
type Controller struct {
	transport domain.Transport
	endpoint  *url.URL
	session   *SessionTracker
	renderer  domain.Renderer
	ids       *PendingIDs

	bus          domain.EventBus
	limiter      *rate.Limiter
	errorMessage string
	widgetID     string
	logger       *slog.Logger

	wg sync.WaitGroup
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithEventBus publishes submission and session events on bus.
func WithEventBus(bus domain.EventBus) ControllerOption {
	return func(c *Controller) { c.bus = bus }
}

// WithRateLimiter throttles submissions. A refused submission settles as
// an error without reaching the transport.
func WithRateLimiter(l *rate.Limiter) ControllerOption {
	return func(c *Controller) { c.limiter = l }
}

// WithErrorMessage overrides the text shown for failed submissions.
func WithErrorMessage(msg string) ControllerOption {
	return func(c *Controller) {
		if msg != "" {
			c.errorMessage = msg
		}
	}
}

// WithWidgetID tags published events with the owning widget.
func WithWidgetID(id string) ControllerOption {
	return func(c *Controller) { c.widgetID = id }
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates a Controller that sends to endpoint.
func NewController(transport domain.Transport, endpoint *url.URL, session *SessionTracker, renderer domain.Renderer, opts ...ControllerOption) *Controller {
	c := &Controller{
		transport:    transport,
		endpoint:     endpoint,
		session:      session,
		renderer:     renderer,
		ids:          NewPendingIDs(),
		errorMessage: config.DefaultErrorMessage,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit trims raw and, when anything is left, reports it as user text,
// opens a pending marker and sends it in the background. It returns the
// pending ID. Blank input returns ErrEmptyMessage and produces no events.
// ctx governs the background request.
func (c *Controller) Submit(ctx context.Context, raw string) (string, error) {
	msg, err := domain.NewOutboundMessage(raw)
	if err != nil {
		return "", err
	}

	c.renderer.OnUserText(msg.Text)
	id := c.ids.Next()
	c.renderer.OnPending(id)
	c.publish(ctx, domain.EventSubmissionStarted, id, nil)

	if c.limiter != nil && !c.limiter.Allow() {
		c.logger.Warn("submission throttled", "pending_id", id)
		c.renderer.OnError(id, c.errorMessage)
		c.renderer.OnPendingCleared(id)
		c.publish(ctx, domain.EventSubmissionFailed, id, domain.SubmissionPayload{
			Outcome: OutcomeRateLimited,
			Reason:  string(ReasonRateLimited),
			Error:   domain.ErrRateLimited.Error(),
		})
		return id, domain.ErrRateLimited
	}

	c.wg.Add(1)
	go c.resolve(ctx, id, msg)
	return id, nil
}

func (c *Controller) resolve(ctx context.Context, id string, msg domain.OutboundMessage) {
	defer c.wg.Done()

	ctx, span := tracer.StartSpan(ctx, "controller.submit")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("pending.id", id), tracer.WidgetAttr(c.widgetID))

	var once sync.Once
	clearPending := func() { once.Do(func() { c.renderer.OnPendingCleared(id) }) }
	defer clearPending()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("renderer panicked", "pending_id", id, "panic", r)
		}
	}()

	start := time.Now()
	out := c.transport.Send(ctx, c.endpoint, msg, c.session.Token())
	payload := domain.SubmissionPayload{
		Outcome:   domain.OutcomeLabel(out),
		DurationS: time.Since(start).Seconds(),
	}

	switch o := out.(type) {
	case domain.Success:
		if c.session.Set(o.SessionToken) {
			c.logger.Info("session updated", "pending_id", id)
			c.publish(ctx, domain.EventSessionUpdated, id, nil)
		}
		c.renderer.OnBotText(id, o.ResponseText)
		tracer.SetOK(span)
		c.publish(ctx, domain.EventSubmissionResolved, id, payload)
	default:
		err := outcomeError(out)
		failure := ClassifyOutcome(out)
		payload.Reason = string(failure.Reason)
		payload.StatusCode = failure.StatusCode
		payload.Error = err.Error()
		c.logger.Warn("submission failed",
			"pending_id", id,
			"outcome", payload.Outcome,
			"reason", failure.Reason,
			"transient", failure.Transient,
			"error", err,
		)
		c.renderer.OnError(id, c.errorMessage)
		tracer.RecordError(span, err)
		c.publish(ctx, domain.EventSubmissionFailed, id, payload)
	}
	clearPending()
}

// Wait blocks until every in-flight submission has settled.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) publish(ctx context.Context, t domain.EventType, pendingID string, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(context.WithoutCancel(ctx), domain.NewEvent(t, c.widgetID, pendingID, payload))
}

func outcomeError(o domain.RequestOutcome) error {
	if err, ok := o.(error); ok {
		return err
	}
	return fmt.Errorf("unexpected outcome %T", o)
}
