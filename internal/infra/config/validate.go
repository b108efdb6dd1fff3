package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateWidget(cfg, ve)
	validateTransport(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateMetrics(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateWidget(cfg *Config, ve *ValidationError) {
	w := cfg.Widget

	if w.APIURL != "" {
		if _, err := url.Parse(w.APIURL); err != nil {
			ve.Add("widget.api_url is not a valid URL: %v", err)
		}
	}
	if w.PageURL != "" {
		u, err := url.Parse(w.PageURL)
		if err != nil {
			ve.Add("widget.page_url is not a valid URL: %v", err)
		} else if u.Host == "" {
			ve.Add("widget.page_url must be absolute (got %q)", w.PageURL)
		}
	}
	if !strings.HasPrefix(w.ChatPath, "/") {
		ve.Add("widget.chat_path must start with '/' (got %q)", w.ChatPath)
	}
	for _, p := range w.HostingPatterns {
		if _, err := path.Match(p, "probe.example"); err != nil {
			ve.Add("widget.hosting_patterns: bad pattern %q: %v", p, err)
		}
	}
	if !isAbsoluteHTTP(w.LocalEndpoint) {
		ve.Add("widget.local_endpoint must be an absolute http(s) URL (got %q)", w.LocalEndpoint)
	}

	switch w.Fallback {
	case FallbackSameOrigin, FallbackDefaultOrigin:
	default:
		ve.Add("widget.fallback must be %q or %q (got %q)", FallbackSameOrigin, FallbackDefaultOrigin, w.Fallback)
	}
	if !isAbsoluteHTTP(w.DefaultOrigin) {
		ve.Add("widget.default_origin must be an absolute http(s) URL (got %q)", w.DefaultOrigin)
	}

	switch w.OriginHint {
	case OriginHintOrigin, OriginHintHostname:
	default:
		ve.Add("widget.origin_hint must be %q or %q (got %q)", OriginHintOrigin, OriginHintHostname, w.OriginHint)
	}
	switch w.Credentials {
	case CredentialsOmit, CredentialsInclude:
	default:
		ve.Add("widget.credentials must be %q or %q (got %q)", CredentialsOmit, CredentialsInclude, w.Credentials)
	}

	if strings.TrimSpace(w.ErrorMessage) == "" {
		ve.Add("widget.error_message must not be empty")
	}
	if w.Probe.Enabled && w.Probe.Timeout <= 0 {
		ve.Add("widget.probe.timeout must be > 0 when the probe is enabled")
	}
}

func validateTransport(cfg *Config, ve *ValidationError) {
	t := cfg.Transport
	if t.ConnTimeout < 0 {
		ve.Add("transport.conn_timeout must be >= 0")
	}
	if t.RequestTimeout < 0 {
		ve.Add("transport.request_timeout must be >= 0")
	}
	if t.MaxResponseBytes < 0 {
		ve.Add("transport.max_response_bytes must be >= 0")
	}
	if t.CircuitBreaker.Enabled && t.CircuitBreaker.MaxFailures == 0 {
		ve.Add("transport.circuit_breaker.max_failures must be > 0 when enabled")
	}
	if t.RateLimit.Enabled {
		if t.RateLimit.PerMinute <= 0 {
			ve.Add("transport.rate_limit.per_minute must be > 0 when enabled")
		}
		if t.RateLimit.Burst <= 0 {
			ve.Add("transport.rate_limit.burst must be > 0 when enabled")
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json":
	default:
		ve.Add("logger.format must be text or json (got %q)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is not supported (noop, stdout)", cfg.Tracer.Exporter)
	}
}

func validateMetrics(cfg *Config, ve *ValidationError) {
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		ve.Add("metrics.addr must be set when metrics are enabled")
	}
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
