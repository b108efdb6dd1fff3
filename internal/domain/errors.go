package domain

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrDisabled     = fmt.Errorf("disabled")
)

// Sentinel errors for the widget core.
var (
	// ErrEmptyMessage marks a submission that was blank after trimming.
	// It is a validation skip, not a failure: no events are emitted for it.
	ErrEmptyMessage      = fmt.Errorf("message is empty")
	ErrHTTPStatus        = fmt.Errorf("unexpected http status")
	ErrNetwork           = fmt.Errorf("network failure")
	ErrMalformedResponse = fmt.Errorf("malformed response body")
	ErrResponseTooLarge  = fmt.Errorf("response body exceeds size limit")
	ErrProbeFailed       = fmt.Errorf("connectivity probe failed")
	ErrCircuitOpen       = fmt.Errorf("circuit open")
	ErrRateLimited       = fmt.Errorf("submission rate limit exceeded")
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrWidgetHidden      = fmt.Errorf("widget is hidden")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Transport.Send")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// Code returns the machine-parseable code of the wrapped sentinel.
func (e *DomainError) Code() ErrorCode { return ErrorCodeOf(e.Err) }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for logs and metrics labels.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeDisabled          ErrorCode = "DISABLED"
	CodeEmptyMessage      ErrorCode = "EMPTY_MESSAGE"
	CodeHTTPStatus        ErrorCode = "HTTP_STATUS"
	CodeNetwork           ErrorCode = "NETWORK"
	CodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	CodeResponseTooLarge  ErrorCode = "RESPONSE_TOO_LARGE"
	CodeProbeFailed       ErrorCode = "PROBE_FAILED"
	CodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeWidgetHidden      ErrorCode = "WIDGET_HIDDEN"
)

// codeOrder lists sentinels from most to least specific. A malformed body is
// also a network failure, so it has to be checked first.
var codeOrder = []struct {
	err  error
	code ErrorCode
}{
	{ErrEmptyMessage, CodeEmptyMessage},
	{ErrMalformedResponse, CodeMalformedResponse},
	{ErrResponseTooLarge, CodeResponseTooLarge},
	{ErrCircuitOpen, CodeCircuitOpen},
	{ErrRateLimited, CodeRateLimited},
	{ErrHTTPStatus, CodeHTTPStatus},
	{ErrNetwork, CodeNetwork},
	{ErrProbeFailed, CodeProbeFailed},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrWidgetHidden, CodeWidgetHidden},
	{ErrTimeout, CodeTimeout},
	{ErrDisabled, CodeDisabled},
	{ErrInvalidInput, CodeInvalidInput},
}

// ErrorCodeOf returns the ErrorCode for the first sentinel found in err's chain.
// Returns CodeUnknown when err is nil or matches no sentinel.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, c := range codeOrder {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}
