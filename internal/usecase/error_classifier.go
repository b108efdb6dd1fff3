package usecase

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"chat-widget/internal/domain"
)

// FailureReason is a coarse label for why a submission did not succeed.
type FailureReason string

const (
	ReasonNone         FailureReason = ""
	ReasonRateLimited  FailureReason = "rate_limited"
	ReasonClientStatus FailureReason = "client_status" // 4xx other than 429
	ReasonThrottled    FailureReason = "throttled"     // 429 from the backend
	ReasonServerStatus FailureReason = "server_status" // 5xx
	ReasonCircuitOpen  FailureReason = "circuit_open"
	ReasonMalformed    FailureReason = "malformed"
	ReasonTooLarge     FailureReason = "too_large"
	ReasonTimeout      FailureReason = "timeout"
	ReasonCanceled     FailureReason = "canceled"
	ReasonConnection   FailureReason = "connection"
	ReasonUnknown      FailureReason = "unknown"
)

// ClassifiedFailure holds the result of classifying a failed outcome.
type ClassifiedFailure struct {
	Reason     FailureReason
	StatusCode int // set for HTTP status failures
	// Transient reports whether the same request could plausibly succeed
	// later. The widget never retries; this only annotates logs and events.
	Transient bool
}

// ClassifyOutcome inspects a failed RequestOutcome. A Success yields the
// zero ClassifiedFailure.
func ClassifyOutcome(o domain.RequestOutcome) ClassifiedFailure {
	switch o := o.(type) {
	case domain.Success:
		return ClassifiedFailure{}
	case *domain.HTTPError:
		return classifyStatus(o.StatusCode)
	case *domain.NetworkError:
		return classifyNetwork(o)
	default:
		return ClassifiedFailure{Reason: ReasonUnknown}
	}
}

func classifyStatus(code int) ClassifiedFailure {
	switch {
	case code == http.StatusTooManyRequests:
		return ClassifiedFailure{Reason: ReasonThrottled, StatusCode: code, Transient: true}
	case code >= 500 && code < 600:
		return ClassifiedFailure{Reason: ReasonServerStatus, StatusCode: code, Transient: true}
	default:
		return ClassifiedFailure{Reason: ReasonClientStatus, StatusCode: code}
	}
}

// classifyNetwork checks wrapped sentinels first, then typed net errors, then
// falls back to message patterns for errors that carry neither.
func classifyNetwork(err error) ClassifiedFailure {
	switch {
	case errors.Is(err, domain.ErrCircuitOpen):
		return ClassifiedFailure{Reason: ReasonCircuitOpen, Transient: true}
	case errors.Is(err, domain.ErrMalformedResponse):
		return ClassifiedFailure{Reason: ReasonMalformed}
	case errors.Is(err, domain.ErrResponseTooLarge):
		return ClassifiedFailure{Reason: ReasonTooLarge}
	case errors.Is(err, context.Canceled):
		return ClassifiedFailure{Reason: ReasonCanceled}
	case errors.Is(err, context.DeadlineExceeded):
		return ClassifiedFailure{Reason: ReasonTimeout, Transient: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassifiedFailure{Reason: ReasonTimeout, Transient: true}
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return ClassifiedFailure{Reason: ReasonConnection, Transient: true}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range []string{"timeout", "deadline exceeded"} {
		if strings.Contains(lower, p) {
			return ClassifiedFailure{Reason: ReasonTimeout, Transient: true}
		}
	}
	for _, p := range []string{
		"connection refused", "no such host", "connection reset", "eof", "tls",
	} {
		if strings.Contains(lower, p) {
			return ClassifiedFailure{Reason: ReasonConnection, Transient: true}
		}
	}
	return ClassifiedFailure{Reason: ReasonUnknown}
}
