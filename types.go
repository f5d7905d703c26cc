package authclient

import (
	"context"
	"encoding/json"
	"io"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	internalmetrics "github.com/MrEthical07/authclient/internal/metrics"
)

// Credentials is the login request body, sent as a JSON object.
type Credentials map[string]any

// FailureReason classifies an unsuccessful login.
type FailureReason int

const (
	// FailureNone means the login succeeded.
	FailureNone FailureReason = iota
	// FailureInvalidCredentials means the server rejected the credentials.
	FailureInvalidCredentials
	// FailureNetwork means no response was received.
	FailureNetwork
	// FailureServer means the server answered with an error status.
	FailureServer
	// FailureMalformedResponse means a 2xx response carried no usable tokens.
	FailureMalformedResponse
)

func (r FailureReason) String() string {
	switch r {
	case FailureNone:
		return "none"
	case FailureInvalidCredentials:
		return "invalid_credentials"
	case FailureNetwork:
		return "network"
	case FailureServer:
		return "server"
	case FailureMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// LoginResult reports the outcome of [Client.Login]. On failure Err wraps
// one of ErrInvalidCredentials, ErrLoginUnavailable or ErrMalformedResponse
// and the session is unchanged.
type LoginResult struct {
	Success bool
	Failure FailureReason
	// Status is the HTTP status, zero when no response arrived.
	Status int
	User   json.RawMessage
	Err    error
}

// LogoutReason tells the navigator why the session ended.
type LogoutReason string

const (
	// LogoutUser is an explicit Logout call.
	LogoutUser LogoutReason = "user"
	// LogoutSessionExpired means the refresh failed.
	LogoutSessionExpired LogoutReason = "session_expired"
	// LogoutRefreshRejected means the refresh endpoint refused the session.
	LogoutRefreshRejected LogoutReason = "refresh_rejected"
)

// Navigator presents the login surface once a session has ended. It is
// called at most once per ended session, while logout still holds the
// session lock: it must return promptly and must not call back into Logout.
type Navigator interface {
	LoginRequired(ctx context.Context, reason LogoutReason)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, reason LogoutReason)

// LoginRequired calls f.
func (f NavigatorFunc) LoginRequired(ctx context.Context, reason LogoutReason) {
	f(ctx, reason)
}

type noopNavigator struct{}

func (noopNavigator) LoginRequired(context.Context, LogoutReason) {}

// Audit event types emitted by the Client.
const (
	AuditLoginSuccess    = "login_success"
	AuditLoginFailure    = "login_failure"
	AuditLogout          = "logout"
	AuditRefreshSuccess  = "refresh_success"
	AuditRefreshFailure  = "refresh_failure"
	AuditSessionRestored = "session_restored"
)

// AuditEvent is one session lifecycle record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a client metric.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess        = MetricID(internalmetrics.MetricLoginSuccess)
	MetricLoginFailure        = MetricID(internalmetrics.MetricLoginFailure)
	MetricLogout              = MetricID(internalmetrics.MetricLogout)
	MetricRefreshStarted      = MetricID(internalmetrics.MetricRefreshStarted)
	MetricRefreshJoined       = MetricID(internalmetrics.MetricRefreshJoined)
	MetricRefreshSuccess      = MetricID(internalmetrics.MetricRefreshSuccess)
	MetricRefreshFailure      = MetricID(internalmetrics.MetricRefreshFailure)
	MetricRequestUnauthorized = MetricID(internalmetrics.MetricRequestUnauthorized)
	MetricRequestRetried      = MetricID(internalmetrics.MetricRequestRetried)
	MetricSessionRestored     = MetricID(internalmetrics.MetricSessionRestored)
	MetricPersistFailure      = MetricID(internalmetrics.MetricPersistFailure)
	MetricRefreshLatency      = MetricID(internalmetrics.MetricRefreshLatency)
)

// Metrics holds the client counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of the client counters.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
