package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"chat-widget/internal/domain"
	"chat-widget/internal/infra/config"
)

const (
	defaultCBMaxFailures uint32 = 5
	defaultCBTimeout            = 30 * time.Second
	defaultCBInterval           = 60 * time.Second
)

// newSendBreaker builds the circuit breaker that guards Send. Network
// failures and 5xx responses count against the backend; 4xx do not.
func newSendBreaker(cfg config.CircuitBreakerConfig, logger *slog.Logger, onChange func(state string)) *gobreaker.CircuitBreaker[domain.RequestOutcome] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	return gobreaker.NewCircuitBreaker[domain.RequestOutcome](gobreaker.Settings{
		Name:        "chat-backend",
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			if onChange != nil {
				onChange(to.String())
			}
		},
		IsSuccessful: func(err error) bool {
			var httpErr *domain.HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
	})
}

// outcomeErr returns the error view of a failed outcome, or nil on success.
func outcomeErr(o domain.RequestOutcome) error {
	if err, ok := o.(error); ok {
		return err
	}
	return nil
}
