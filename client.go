package authclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/MrEthical07/authclient/transport"
)

// Client is the session controller. It owns the credential store, performs
// login and logout, and hands out an HTTP client whose requests carry the
// session's bearer token and recover from expired access tokens.
//
// A Client is safe for concurrent use. Build one with [New].
type Client struct {
	config Config

	store      *session.Store
	httpClient *http.Client
	refresher  *refresh.Refresher
	pipeline   *transport.Pipeline
	navigator  Navigator
	logger     *slog.Logger
	metrics    *Metrics
	audit      *internalaudit.Dispatcher
	flowDeps   flows.Deps

	// logoutMu serializes the check-and-clear of logout with refreshed
	// token writes so a finished refresh cannot revive an ended session.
	logoutMu sync.Mutex
	closed   atomic.Bool
}

var (
	_ refresh.TokenWriter         = (*Client)(nil)
	_ transport.SessionTerminator = (*Client)(nil)
)

// Login posts credentials to the login endpoint. On success the session is
// replaced with the issued tokens and user payload.
//
// Expected failures (rejected credentials, network or server errors, an
// unusable response) are reported in the LoginResult with a nil error and
// leave the session untouched. The error is non-nil only for programmer or
// configuration mistakes.
func (c *Client) Login(ctx context.Context, credentials Credentials) (*LoginResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if c.config.Endpoints.LoginURL == "" {
		return nil, ErrLoginEndpointMissing
	}

	requestID := requestIDOrNew(ctx)
	if c.config.HTTP.AuthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.HTTP.AuthTimeout)
		defer cancel()
	}

	deps := c.flowDeps.Login
	deps.RequestID = func() string { return requestID }
	res := flows.RunLogin(ctx, credentials, deps)
	if res.ProgrammerErr != nil {
		return nil, fmt.Errorf("authclient: login: %w", res.ProgrammerErr)
	}

	if res.Failure != flows.LoginFailureNone {
		out := mapLoginFailure(res)
		c.metrics.Inc(MetricLoginFailure)
		c.emitAudit(ctx, AuditLoginFailure, false, requestID, out.Failure.String(), out.Err)
		c.logger.Info("authclient: login failed",
			"request_id", requestID,
			"reason", out.Failure.String(),
			"status", out.Status,
		)
		return out, nil
	}

	c.logoutMu.Lock()
	err := c.store.Set(ctx, session.Full(res.User, res.AccessToken, res.RefreshToken))
	c.logoutMu.Unlock()
	if err != nil {
		c.metrics.Inc(MetricPersistFailure)
		c.logger.Warn("authclient: session not persisted after login", "request_id", requestID, "error", err)
	}

	c.metrics.Inc(MetricLoginSuccess)
	c.emitAudit(ctx, AuditLoginSuccess, true, requestID, "", nil)
	return &LoginResult{
		Success: true,
		Status:  res.Status,
		User:    res.User,
	}, nil
}

// Logout ends the session and tells the navigator to present the login
// surface. Logging out while logged out does nothing. Concurrent calls
// result in a single logout.
//
// The returned error is non-nil only when the persisted snapshot could not
// be removed; the in-memory session is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.logout(ctx, LogoutUser)
}

func (c *Client) logout(ctx context.Context, reason LogoutReason) error {
	c.logoutMu.Lock()
	defer c.logoutMu.Unlock()

	res := flows.RunLogout(ctx, string(reason), c.flowDeps.Logout)
	if res.PersistErr != nil {
		c.metrics.Inc(MetricPersistFailure)
		c.logger.Warn("authclient: session snapshot not removed on logout", "error", res.PersistErr)
	}
	if !res.Cleared {
		return res.PersistErr
	}

	c.metrics.Inc(MetricLogout)
	c.emitAudit(ctx, AuditLogout, true, requestIDFromContext(ctx), string(reason), nil)
	c.logger.Info("authclient: logged out", "reason", string(reason))
	return res.PersistErr
}

// TerminateSession ends the session after an unrecoverable refresh failure.
// It is called by the request pipeline.
func (c *Client) TerminateSession(ctx context.Context, cause error) {
	reason := LogoutSessionExpired
	if errors.Is(cause, ErrRefreshRejected) {
		reason = LogoutRefreshRejected
	}
	_ = c.logout(ctx, reason)
}

// StoreRefreshedTokens writes the outcome of a refresh exchange. An empty
// refreshToken keeps the current one. Tokens are refused with
// refresh.ErrSessionEnded unless the session still holds usedRefreshToken,
// so an exchange that outlives a logout or a new login writes nothing.
func (c *Client) StoreRefreshedTokens(ctx context.Context, usedRefreshToken, accessToken, refreshToken string) error {
	c.logoutMu.Lock()
	defer c.logoutMu.Unlock()

	if current := c.store.RefreshToken(); current == "" || current != usedRefreshToken {
		return refresh.ErrSessionEnded
	}
	if err := c.store.Set(ctx, session.Tokens(accessToken, refreshToken)); err != nil {
		c.metrics.Inc(MetricPersistFailure)
		return err
	}
	return nil
}

// IsAuthenticated reports whether the session holds an access token.
func (c *Client) IsAuthenticated() bool {
	if c == nil {
		return false
	}
	return c.store.IsAuthenticated()
}

// Session returns a copy of the current session.
func (c *Client) Session() session.Session {
	if c == nil {
		return session.Session{}
	}
	return c.store.Get()
}

// Restore rehydrates the session from storage. It reports whether a session
// was found; unreadable snapshots count as no session and are logged.
func (c *Client) Restore(ctx context.Context) bool {
	if c.ready() != nil {
		return false
	}

	c.logoutMu.Lock()
	restored, err := c.store.Restore(ctx)
	c.logoutMu.Unlock()
	if err != nil {
		c.logger.Warn("authclient: discarded persisted session", "error", err)
	}
	if !restored {
		return false
	}

	c.metrics.Inc(MetricSessionRestored)
	c.emitAudit(ctx, AuditSessionRestored, true, "", "", nil)
	return true
}

// HTTPClient returns the governed client. Requests sent through it carry the
// bearer token and are refreshed and retried once on 401.
func (c *Client) HTTPClient() *http.Client {
	if c == nil {
		return nil
	}
	return c.httpClient
}

// Transport returns the request pipeline for use in a caller-built
// http.Client.
func (c *Client) Transport() http.RoundTripper {
	if c == nil {
		return nil
	}
	return c.pipeline
}

// Do sends req through the governed client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// RefreshInFlight reports whether a refresh exchange is running.
func (c *Client) RefreshInFlight() bool {
	if c == nil {
		return false
	}
	return c.refresher.InFlight()
}

// Close stops background work. The session is left as is.
func (c *Client) Close() {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.audit.Close()
}

func (c *Client) ready() error {
	if c == nil || c.closed.Load() {
		return ErrClientNotReady
	}
	return nil
}

// exchange runs the refresh flow and maps its failures onto client errors.
func (c *Client) exchange(ctx context.Context, refreshToken string) (refresh.Tokens, error) {
	res := flows.RunRefresh(ctx, refreshToken, c.flowDeps.Refresh)
	switch res.Failure {
	case flows.RefreshFailureNone:
		return refresh.Tokens{Access: res.AccessToken, Refresh: res.RefreshToken}, nil
	case flows.RefreshFailureNoToken:
		return refresh.Tokens{}, ErrNoRefreshToken
	case flows.RefreshFailureRejected:
		return refresh.Tokens{}, fmt.Errorf("%w: %w", ErrRefreshRejected, res.Err)
	case flows.RefreshFailureTimeout:
		return refresh.Tokens{}, fmt.Errorf("%w: %w", ErrRefreshTimeout, res.Err)
	case flows.RefreshFailureMalformedResponse:
		return refresh.Tokens{}, fmt.Errorf("%w: %w", ErrMalformedResponse, res.Err)
	case flows.RefreshFailureConfig:
		return refresh.Tokens{}, fmt.Errorf("%w: %w", ErrRefreshEndpointMissing, res.Err)
	default:
		return refresh.Tokens{}, fmt.Errorf("%w: %w", ErrRefreshUnavailable, res.Err)
	}
}

func mapLoginFailure(res flows.LoginResult) *LoginResult {
	out := &LoginResult{Status: res.Status}
	switch res.Failure {
	case flows.LoginFailureInvalidCredentials:
		out.Failure = FailureInvalidCredentials
		out.Err = fmt.Errorf("%w: %w", ErrInvalidCredentials, res.Err)
	case flows.LoginFailureNetwork:
		out.Failure = FailureNetwork
		out.Err = fmt.Errorf("%w: %w", ErrLoginUnavailable, res.Err)
	case flows.LoginFailureMalformedResponse:
		out.Failure = FailureMalformedResponse
		out.Err = fmt.Errorf("%w: %w", ErrMalformedResponse, res.Err)
	default:
		out.Failure = FailureServer
		out.Err = fmt.Errorf("%w: %w", ErrLoginUnavailable, res.Err)
	}
	return out
}
