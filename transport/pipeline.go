package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/refresh"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// drainLimit bounds how much of a 401 body is read before closing it so the
// connection can be reused.
const drainLimit = 64 << 10

// TokenSource is a read-only view of the current session tokens.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
}

// TokenRefresher returns a fresh access token. staleToken is the token the
// rejected request carried.
type TokenRefresher interface {
	Refresh(ctx context.Context, staleToken string) (string, error)
}

// SessionTerminator ends the session after an unrecoverable refresh failure.
// It must be idempotent.
type SessionTerminator interface {
	TerminateSession(ctx context.Context, cause error)
}

// Observer receives pipeline notifications. Implementations must not block.
type Observer interface {
	RequestUnauthorized()
	RequestRetried()
}

// Config tunes a Pipeline.
type Config struct {
	// Base sends requests. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// RefreshURL identifies the refresh endpoint; a 401 from it is terminal.
	RefreshURL string
	// ProactiveWindow refreshes before sending when a JWT access token
	// expires within the window. Zero disables it.
	ProactiveWindow time.Duration
	Inspector       *jwt.Inspector
	Observer        Observer
	Logger          *slog.Logger
	// RequestID generates correlation IDs. Defaults to UUID v4.
	RequestID func() string
}

// Pipeline governs outbound requests for one session.
type Pipeline struct {
	base       http.RoundTripper
	source     TokenSource
	refresher  TokenRefresher
	terminator SessionTerminator
	refreshURL *url.URL
	window     time.Duration
	inspector  *jwt.Inspector
	observer   Observer
	logger     *slog.Logger
	requestID  func() string
}

var _ http.RoundTripper = (*Pipeline)(nil)

// New builds a Pipeline.
func New(source TokenSource, refresher TokenRefresher, terminator SessionTerminator, cfg Config) (*Pipeline, error) {
	if source == nil || refresher == nil || terminator == nil {
		return nil, errors.New("transport: token source, refresher and terminator are required")
	}

	p := &Pipeline{
		base:       cfg.Base,
		source:     source,
		refresher:  refresher,
		terminator: terminator,
		window:     cfg.ProactiveWindow,
		inspector:  cfg.Inspector,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
		requestID:  cfg.RequestID,
	}
	if p.base == nil {
		p.base = http.DefaultTransport
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.requestID == nil {
		p.requestID = uuid.NewString
	}
	if p.window > 0 && p.inspector == nil {
		p.inspector = jwt.NewInspector()
	}
	if cfg.RefreshURL != "" {
		u, err := url.Parse(cfg.RefreshURL)
		if err != nil {
			return nil, fmt.Errorf("transport: parse refresh url: %w", err)
		}
		p.refreshURL = u
	}
	return p, nil
}

// RoundTrip sends req with the current bearer token. On 401 it refreshes and
// resends once; the resend's response is final.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = p.requestID()
	}

	pending, err := newPendingRequest(req, id)
	if err != nil {
		return nil, err
	}
	refreshCall := p.isRefreshRequest(req)

	token := p.source.AccessToken()
	if !refreshCall && p.shouldRefreshEarly(token) {
		fresh, err := p.refresher.Refresh(ctx, token)
		if err != nil {
			pending.closeUnsent()
			return nil, p.refreshFailed(ctx, req, id, err)
		}
		p.logger.Debug("authclient: refreshed before send", "request_id", id)
		token = fresh
	}

	if refreshCall {
		pending.keepAuth = true
	}
	attempt, err := pending.build(ctx, token)
	if err != nil {
		return nil, err
	}
	resp, err := p.base.RoundTrip(attempt)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if refreshCall {
		drain(resp)
		p.logger.Warn("authclient: refresh endpoint rejected the session", "request_id", id)
		p.terminator.TerminateSession(context.WithoutCancel(ctx), ErrRefreshRejected)
		return nil, &RequestError{Op: "refresh", URL: redact(req.URL), Err: ErrRefreshRejected}
	}
	if pending.retried || isRetried(ctx) {
		return resp, nil
	}
	if pending.token == "" && p.source.RefreshToken() == "" {
		return resp, nil
	}

	if p.observer != nil {
		p.observer.RequestUnauthorized()
	}
	drain(resp)
	pending.retried = true

	fresh, err := p.refresher.Refresh(ctx, pending.token)
	if err != nil {
		return nil, p.refreshFailed(ctx, req, id, err)
	}

	retry, err := pending.build(withRetried(ctx), fresh)
	if err != nil {
		return nil, err
	}
	if p.observer != nil {
		p.observer.RequestRetried()
	}
	p.logger.Debug("authclient: retrying request after refresh",
		"request_id", id,
		"method", req.Method,
		"path", req.URL.Path,
	)
	return p.base.RoundTrip(retry)
}

// refreshFailed maps a refresher error to the pipeline result. Caller
// cancellation is passed through. A refresh refused because its session
// already ended leaves the current session alone; anything else ends it.
func (p *Pipeline) refreshFailed(ctx context.Context, req *http.Request, id string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	if errors.Is(err, refresh.ErrSessionEnded) {
		p.logger.Info("authclient: session ended before refresh completed", "request_id", id)
	} else {
		p.logger.Warn("authclient: session expired, refresh failed", "request_id", id, "error", err)
		p.terminator.TerminateSession(context.WithoutCancel(ctx), err)
	}
	return &RequestError{
		Op:  req.Method,
		URL: redact(req.URL),
		Err: fmt.Errorf("%w: %w", ErrSessionExpired, err),
	}
}

func (p *Pipeline) shouldRefreshEarly(token string) bool {
	if p.window <= 0 || token == "" || p.source.RefreshToken() == "" {
		return false
	}
	return p.inspector.ExpiresWithin(token, p.window)
}

func (p *Pipeline) isRefreshRequest(req *http.Request) bool {
	if IsRefreshCall(req.Context()) {
		return true
	}
	if p.refreshURL == nil {
		return false
	}
	u := req.URL
	return u.Scheme == p.refreshURL.Scheme &&
		u.Host == p.refreshURL.Host &&
		u.Path == p.refreshURL.Path
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}

// redact drops query and credentials from u for error messages.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.User = nil
	c.RawQuery = ""
	c.Fragment = ""
	return c.String()
}
