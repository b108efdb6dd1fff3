package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential inclusion modes for cross-origin requests.
const (
	CredentialsOmit    = "omit"
	CredentialsInclude = "include"
)

// Endpoint fallback policies used when no other resolution rule matches.
const (
	FallbackSameOrigin    = "same_origin"
	FallbackDefaultOrigin = "default_origin"
)

// Origin hint sources for the X-Origin-Domain header.
const (
	OriginHintOrigin   = "origin"
	OriginHintHostname = "hostname"
)

// DefaultErrorMessage is the fixed user-facing text for failed submissions.
const DefaultErrorMessage = "Connection error. Please try again later."

// DefaultMaxResponseBytes is the response body cap when none is configured.
const DefaultMaxResponseBytes = 8 << 20

// Config is the top-level application configuration.
type Config struct {
	Widget    WidgetConfig    `yaml:"widget"`
	Transport TransportConfig `yaml:"transport"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Includes  []string        `yaml:"includes,omitempty"`
}

// WidgetConfig holds the settings read once when a widget instance starts.
type WidgetConfig struct {
	// APIURL is the explicit endpoint override (the embedding host's data-api-url).
	APIURL string `yaml:"api_url"`
	// PageURL is the location of the host page; hostname and origin derive from it.
	PageURL string `yaml:"page_url"`

	ChatPath        string   `yaml:"chat_path"`
	HostingPatterns []string `yaml:"hosting_patterns"`
	LocalEndpoint   string   `yaml:"local_endpoint"`
	Fallback        string   `yaml:"fallback"`       // "same_origin" or "default_origin"
	DefaultOrigin   string   `yaml:"default_origin"` // used by the default_origin fallback
	OriginHint      string   `yaml:"origin_hint"`    // "origin" or "hostname"
	Credentials     string   `yaml:"credentials"`    // "omit" or "include"

	ErrorMessage string `yaml:"error_message"`
	Greeting     string `yaml:"greeting"`
	Title        string `yaml:"title"`

	Probe   ProbeConfig   `yaml:"probe"`
	History HistoryConfig `yaml:"history"`
}

// ProbeConfig controls the optional startup connectivity check.
type ProbeConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// HistoryConfig controls history hydration on first open.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TransportConfig holds HTTP client settings.
type TransportConfig struct {
	ConnTimeout      time.Duration        `yaml:"conn_timeout"`
	RequestTimeout   time.Duration        `yaml:"request_timeout"`    // 0 = no client-side deadline
	MaxResponseBytes int64                `yaml:"max_response_bytes"` // larger bodies fail with domain.ErrResponseTooLarge; 0 = DefaultMaxResponseBytes
	Pool             PoolConfig           `yaml:"pool"`
	CircuitBreaker   CircuitBreakerConfig `yaml:"circuit_breaker"`
	RateLimit        RateLimitConfig      `yaml:"rate_limit"`
}

// PoolConfig configures HTTP connection pooling.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// CircuitBreakerConfig configures the optional send circuit breaker.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled"`
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval"`
}

// RateLimitConfig configures the optional client-side submission throttle.
type RateLimitConfig struct {
	Enabled   bool    `yaml:"enabled"`
	PerMinute float64 `yaml:"per_minute"`
	Burst     int     `yaml:"burst"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultHostingPatterns are hostname globs of cloud hosts that serve the
// chat backend on the same hostname as the page.
var DefaultHostingPatterns = []string{
	"*.github.dev",
	"*.app.github.dev",
	"*.vercel.app",
	"*.netlify.app",
	"*.herokuapp.com",
	"*.onrender.com",
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Widget: WidgetConfig{
			ChatPath:        "/chat",
			HostingPatterns: append([]string(nil), DefaultHostingPatterns...),
			LocalEndpoint:   "http://localhost:8000/chat",
			Fallback:        FallbackSameOrigin,
			DefaultOrigin:   "https://curly-adventure-q7447rx9g94jc94qr.github.dev",
			OriginHint:      OriginHintOrigin,
			Credentials:     CredentialsOmit,
			ErrorMessage:    DefaultErrorMessage,
			Greeting:        "How can we help you?",
			Title:           "Chat with us",
			Probe: ProbeConfig{
				Enabled: false,
				Timeout: 5 * time.Second,
			},
			History: HistoryConfig{Enabled: true},
		},
		Transport: TransportConfig{
			ConnTimeout:      30 * time.Second,
			MaxResponseBytes: DefaultMaxResponseBytes,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     false,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
			RateLimit: RateLimitConfig{
				Enabled:   false,
				PerMinute: 30,
				Burst:     5,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// Load reads a YAML config file, merges includes and applies env var overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Includes) > 0 {
		visited := map[string]bool{absPath: true}
		if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
			return nil, err
		}
		// The main file wins over anything it includes.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (second pass): %w", err)
		}
		cfg.Includes = nil
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps CHATWIDGET_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHATWIDGET_API_URL"); v != "" {
		cfg.Widget.APIURL = v
	}
	if v := os.Getenv("CHATWIDGET_PAGE_URL"); v != "" {
		cfg.Widget.PageURL = v
	}
	if v := os.Getenv("CHATWIDGET_CHAT_PATH"); v != "" {
		cfg.Widget.ChatPath = v
	}
	if v := os.Getenv("CHATWIDGET_HOSTING_PATTERNS"); v != "" {
		cfg.Widget.HostingPatterns = splitList(v)
	}
	if v := os.Getenv("CHATWIDGET_LOCAL_ENDPOINT"); v != "" {
		cfg.Widget.LocalEndpoint = v
	}
	if v := os.Getenv("CHATWIDGET_FALLBACK"); v != "" {
		cfg.Widget.Fallback = v
	}
	if v := os.Getenv("CHATWIDGET_DEFAULT_ORIGIN"); v != "" {
		cfg.Widget.DefaultOrigin = v
	}
	if v := os.Getenv("CHATWIDGET_ORIGIN_HINT"); v != "" {
		cfg.Widget.OriginHint = v
	}
	if v := os.Getenv("CHATWIDGET_CREDENTIALS"); v != "" {
		cfg.Widget.Credentials = v
	}
	if v := os.Getenv("CHATWIDGET_ERROR_MESSAGE"); v != "" {
		cfg.Widget.ErrorMessage = v
	}
	if v := os.Getenv("CHATWIDGET_PROBE_ENABLED"); v != "" {
		cfg.Widget.Probe.Enabled = v == "true"
	}
	if v := os.Getenv("CHATWIDGET_PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Widget.Probe.Timeout = d
		}
	}
	if v := os.Getenv("CHATWIDGET_HISTORY_ENABLED"); v != "" {
		cfg.Widget.History.Enabled = v == "true"
	}
	if v := os.Getenv("CHATWIDGET_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Transport.RequestTimeout = d
		}
	}
	if v := os.Getenv("CHATWIDGET_MAX_RESPONSE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Transport.MaxResponseBytes = n
		}
	}
	if v := os.Getenv("CHATWIDGET_CIRCUIT_BREAKER_ENABLED"); v == "true" {
		cfg.Transport.CircuitBreaker.Enabled = true
	}
	if v := os.Getenv("CHATWIDGET_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Transport.RateLimit.Enabled = true
			cfg.Transport.RateLimit.PerMinute = n
		}
	}
	if v := os.Getenv("CHATWIDGET_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("CHATWIDGET_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("CHATWIDGET_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("CHATWIDGET_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("CHATWIDGET_METRICS_ADDR"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validatePermissions rejects config files writable by group or others.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
