package domain

import (
	"fmt"
)

// RequestOutcome is the result of one Transport.Send call. It is one of
// Success, *HTTPError or *NetworkError; Transport never returns nil.
type RequestOutcome interface {
	outcome()
}

// Success carries the bot reply and, optionally, a session token issued by
// the backend. An empty SessionToken means the response had none.
type Success struct {
	ResponseText string
	SessionToken string
}

func (Success) outcome() {}

// HTTPError reports a non-2xx status from a reachable backend.
type HTTPError struct {
	StatusCode int
}

func (*HTTPError) outcome() {}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %d", ErrHTTPStatus, e.StatusCode)
}

func (e *HTTPError) Unwrap() error { return ErrHTTPStatus }

// NetworkError reports a transport-level failure: DNS, TLS, timeout,
// cancellation, or an unparseable response body.
type NetworkError struct {
	Cause error
}

func (*NetworkError) outcome() {}

func (e *NetworkError) Error() string {
	if e.Cause == nil {
		return ErrNetwork.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNetwork, e.Cause)
}

// Unwrap exposes both the category sentinel and the cause to errors.Is.
func (e *NetworkError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrNetwork}
	}
	return []error{ErrNetwork, e.Cause}
}

// OutcomeLabel returns a short stable label for logs and metrics.
func OutcomeLabel(o RequestOutcome) string {
	switch o.(type) {
	case Success:
		return "success"
	case *HTTPError:
		return "http_error"
	case *NetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Compile-time interface assertions.
var (
	_ RequestOutcome = Success{}
	_ RequestOutcome = (*HTTPError)(nil)
	_ RequestOutcome = (*NetworkError)(nil)
	_ error          = (*HTTPError)(nil)
	_ error          = (*NetworkError)(nil)
)
