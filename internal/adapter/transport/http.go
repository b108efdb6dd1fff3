package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"chat-widget/internal/domain"
	"chat-widget/internal/infra/config"
	"chat-widget/internal/infra/tracer"
)

// Wire header names.
const (
	HeaderOriginDomain = "X-Origin-Domain"
	HeaderSessionID    = "X-Session-ID"
)

// drainLimit bounds how much of an error body is discarded to keep the
// connection reusable.
const drainLimit = 64 << 10

type sendRequest struct {
	Message string `json:"message"`
}

type sendResponse struct {
	Response  *string `json:"response"`
	SessionID string  `json:"session_id,omitempty"`
}

type historyResponse struct {
	History []historyItem `json:"history"`
}

type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HTTPTransport talks to the chat backend over HTTP.
type HTTPTransport struct {
	client       *http.Client
	probeClient  *http.Client
	originDomain string
	breaker      *gobreaker.CircuitBreaker[domain.RequestOutcome]
	logger       *slog.Logger
	maxBody      int64
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithClient replaces the HTTP client used for send and history requests.
func WithClient(c *http.Client) Option {
	return func(t *HTTPTransport) { t.client = c }
}

// WithOriginDomain sets the X-Origin-Domain value. Empty omits the header.
func WithOriginDomain(v string) Option {
	return func(t *HTTPTransport) { t.originDomain = v }
}

// WithMaxResponseBytes caps how much of a response body is read. Bodies
// beyond n fail with domain.ErrResponseTooLarge. n <= 0 keeps
// config.DefaultMaxResponseBytes.
func WithMaxResponseBytes(n int64) Option {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxBody = n
		}
	}
}

// WithLogger sets the transport logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTPTransport) { t.logger = l }
}

// WithCircuitBreaker guards Send with a circuit breaker. onChange, when set,
// receives the new state name on every transition.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig, onChange func(state string)) Option {
	return func(t *HTTPTransport) {
		t.breaker = newSendBreaker(cfg, t.logger, onChange)
	}
}

// New creates an HTTPTransport. Without WithClient it uses http.DefaultClient.
// Options apply in order, so WithLogger should precede WithCircuitBreaker.
func New(opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		client:  http.DefaultClient,
		logger:  slog.New(slog.DiscardHandler),
		maxBody: config.DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.probeClient = &http.Client{
		Transport: t.client.Transport,
		Timeout:   t.client.Timeout,
	}
	return t
}

// Send posts msg to endpoint. It never returns nil and never retries.
func (t *HTTPTransport) Send(ctx context.Context, endpoint *url.URL, msg domain.OutboundMessage, sessionToken string) domain.RequestOutcome {
	ctx, span := tracer.StartSpan(ctx, "transport.send")
	defer span.End()
	span.SetAttributes(tracer.BoolAttr("session.present", sessionToken != ""))

	start := time.Now()
	var out domain.RequestOutcome
	if t.breaker != nil {
		res, err := t.breaker.Execute(func() (domain.RequestOutcome, error) {
			o := t.send(ctx, endpoint, msg, sessionToken)
			return o, outcomeErr(o)
		})
		out = res
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			out = &domain.NetworkError{Cause: fmt.Errorf("%w: %w", domain.ErrCircuitOpen, err)}
		}
	} else {
		out = t.send(ctx, endpoint, msg, sessionToken)
	}

	switch o := out.(type) {
	case domain.Success:
		tracer.SetOK(span)
	case *domain.HTTPError:
		span.SetAttributes(tracer.IntAttr("http.status_code", o.StatusCode))
		tracer.RecordError(span, o)
	case *domain.NetworkError:
		tracer.RecordError(span, o)
	}
	t.logger.Debug("send completed",
		"outcome", domain.OutcomeLabel(out),
		"duration", time.Since(start),
	)
	return out
}

func (t *HTTPTransport) send(ctx context.Context, endpoint *url.URL, msg domain.OutboundMessage, sessionToken string) domain.RequestOutcome {
	body, err := json.Marshal(sendRequest{Message: msg.Text})
	if err != nil {
		return &domain.NetworkError{Cause: fmt.Errorf("encode request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return &domain.NetworkError{Cause: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	t.setCommonHeaders(req, sessionToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return &domain.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp.Body)
		return &domain.HTTPError{StatusCode: resp.StatusCode}
	}

	raw, err := t.readBody(resp.Body)
	if err != nil {
		return &domain.NetworkError{Cause: err}
	}
	var parsed sendResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &domain.NetworkError{Cause: fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)}
	}
	if parsed.Response == nil {
		return &domain.NetworkError{Cause: fmt.Errorf("%w: missing response field", domain.ErrMalformedResponse)}
	}
	return domain.Success{ResponseText: *parsed.Response, SessionToken: parsed.SessionID}
}

// FetchHistory reads prior turns from <endpoint>/history. A body without a
// history field yields no entries. Failures are *domain.HTTPError or
// *domain.NetworkError.
func (t *HTTPTransport) FetchHistory(ctx context.Context, endpoint *url.URL, sessionToken string) ([]domain.HistoryEntry, error) {
	ctx, span := tracer.StartSpan(ctx, "transport.history")
	defer span.End()

	entries, err := t.fetchHistory(ctx, endpoint, sessionToken)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(tracer.IntAttr("history.entries", len(entries)))
	tracer.SetOK(span)
	return entries, nil
}

func (t *HTTPTransport) fetchHistory(ctx context.Context, endpoint *url.URL, sessionToken string) ([]domain.HistoryEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, HistoryURL(endpoint).String(), nil)
	if err != nil {
		return nil, &domain.NetworkError{Cause: fmt.Errorf("create request: %w", err)}
	}
	t.setCommonHeaders(req, sessionToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp.Body)
		return nil, &domain.HTTPError{StatusCode: resp.StatusCode}
	}

	raw, err := t.readBody(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Cause: err}
	}
	var parsed historyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &domain.NetworkError{Cause: fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)}
	}

	entries := make([]domain.HistoryEntry, 0, len(parsed.History))
	for _, item := range parsed.History {
		entries = append(entries, domain.HistoryEntry{
			Role: domain.ClassifyRole(item.Role),
			Text: item.Content,
		})
	}
	return entries, nil
}

// Ping issues a bare GET to endpoint and returns the response status. It
// carries the origin header only: no session and no cookies.
func (t *HTTPTransport) Ping(ctx context.Context, endpoint *url.URL) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if t.originDomain != "" {
		req.Header.Set(HeaderOriginDomain, t.originDomain)
	}
	resp, err := t.probeClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	drain(resp.Body)
	return resp.StatusCode, nil
}

// BreakerState reports the circuit breaker state, or "disabled".
func (t *HTTPTransport) BreakerState() string {
	if t.breaker == nil {
		return "disabled"
	}
	return t.breaker.State().String()
}

func (t *HTTPTransport) setCommonHeaders(req *http.Request, sessionToken string) {
	if t.originDomain != "" {
		req.Header.Set(HeaderOriginDomain, t.originDomain)
	}
	if sessionToken != "" {
		req.Header.Set(HeaderSessionID, sessionToken)
	}
}

// readBody reads the whole body, failing with domain.ErrResponseTooLarge
// instead of truncating when it exceeds the configured cap.
func (t *HTTPTransport) readBody(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, t.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > t.maxBody {
		return nil, fmt.Errorf("%w: limit %d bytes", domain.ErrResponseTooLarge, t.maxBody)
	}
	return raw, nil
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))
}

// HistoryURL returns the history sub-resource of endpoint.
func HistoryURL(endpoint *url.URL) *url.URL {
	return endpoint.JoinPath("history")
}

var _ domain.Transport = (*HTTPTransport)(nil)
