package authclient

import (
	"errors"
	"net/url"
	"time"

	"github.com/MrEthical07/authclient/session"
)

// Config controls a [Client]. Start from [DefaultConfig] and override fields.
type Config struct {
	Endpoints EndpointsConfig `envPrefix:"ENDPOINT_"`
	Session   SessionConfig   `envPrefix:"SESSION_"`
	Refresh   RefreshConfig   `envPrefix:"REFRESH_"`
	HTTP      HTTPConfig      `envPrefix:"HTTP_"`
	Audit     AuditConfig     `envPrefix:"AUDIT_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

/*
====================================
ENDPOINTS CONFIG
====================================
*/

// EndpointsConfig names the auth endpoints. Both are absolute URLs.
type EndpointsConfig struct {
	LoginURL   string `env:"LOGIN_URL"`
	RefreshURL string `env:"REFRESH_URL"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls how the session snapshot is persisted.
type SessionConfig struct {
	// StorageKey is the single key the snapshot is stored under.
	StorageKey string `env:"STORAGE_KEY"`
	// RestoreOnBuild rehydrates the session from storage during Build.
	RestoreOnBuild bool `env:"RESTORE_ON_BUILD"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls token renewal.
type RefreshConfig struct {
	// Timeout bounds one refresh exchange. Hitting it counts as a refresh
	// failure and ends the session.
	Timeout time.Duration `env:"TIMEOUT"`
	// ProactiveWindow refreshes before sending when a JWT access token
	// expires within the window. Zero disables proactive refresh.
	ProactiveWindow time.Duration `env:"PROACTIVE_WINDOW"`
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig controls the HTTP clients built by the Client.
type HTTPConfig struct {
	// Timeout bounds each downstream call made through HTTPClient,
	// including a refresh and the retry.
	Timeout time.Duration `env:"TIMEOUT"`
	// AuthTimeout bounds login calls.
	AuthTimeout time.Duration `env:"AUTH_TIMEOUT"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous session audit trail.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

// DefaultConfig returns a Config with every tunable set. Endpoints are left
// empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			StorageKey:     session.DefaultKey,
			RestoreOnBuild: true,
		},
		Refresh: RefreshConfig{
			Timeout: 10 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:     30 * time.Second,
			AuthTimeout: 15 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// Endpoints
	if c.Endpoints.LoginURL == "" {
		return ErrLoginEndpointMissing
	}
	if c.Endpoints.RefreshURL == "" {
		return ErrRefreshEndpointMissing
	}
	if err := validateEndpoint(c.Endpoints.LoginURL); err != nil {
		return errors.New("Endpoints LoginURL " + err.Error())
	}
	if err := validateEndpoint(c.Endpoints.RefreshURL); err != nil {
		return errors.New("Endpoints RefreshURL " + err.Error())
	}

	// Session
	if c.Session.StorageKey == "" {
		return errors.New("Session StorageKey must not be empty")
	}

	// Refresh
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Refresh.ProactiveWindow < 0 {
		return errors.New("Refresh ProactiveWindow must be >= 0")
	}

	// HTTP
	if c.HTTP.Timeout < 0 || c.HTTP.AuthTimeout < 0 {
		return errors.New("HTTP timeouts must be >= 0")
	}
	if c.HTTP.Timeout > 0 && c.HTTP.Timeout <= c.Refresh.Timeout {
		return errors.New("HTTP Timeout must exceed Refresh Timeout")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}
