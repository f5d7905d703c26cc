package authclient

import (
	"errors"

	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/MrEthical07/authclient/storage"
	"github.com/MrEthical07/authclient/transport"
)

var (
	// ErrClientNotReady is returned when a nil or closed Client is used.
	ErrClientNotReady = errors.New("authclient: client not ready")
	// ErrLoginEndpointMissing is returned by Build and Login when no login
	// URL is configured.
	ErrLoginEndpointMissing = errors.New("authclient: login endpoint not configured")
	// ErrRefreshEndpointMissing is returned by Build when no refresh URL is
	// configured.
	ErrRefreshEndpointMissing = errors.New("authclient: refresh endpoint not configured")
	// ErrInvalidCredentials marks a login the server rejected.
	ErrInvalidCredentials = errors.New("authclient: invalid credentials")
	// ErrLoginUnavailable marks a login that failed on the network or the
	// server side.
	ErrLoginUnavailable = errors.New("authclient: login unavailable")
	// ErrMalformedResponse marks a 2xx auth response without usable tokens.
	ErrMalformedResponse = errors.New("authclient: malformed response")

	// ErrSessionExpired is returned by governed requests when the session
	// could not be refreshed and was ended.
	ErrSessionExpired = transport.ErrSessionExpired
	// ErrRefreshRejected marks a refresh the server refused.
	ErrRefreshRejected = transport.ErrRefreshRejected
	// ErrNoRefreshToken is returned when a refresh is needed but the session
	// holds no refresh token.
	ErrNoRefreshToken = refresh.ErrNoRefreshToken
	// ErrRefreshTimeout marks a refresh exchange that did not settle in time.
	ErrRefreshTimeout = refresh.ErrTimeout
	// ErrRefreshNoAccessToken marks an accepted exchange that issued no
	// access token.
	ErrRefreshNoAccessToken = refresh.ErrNoAccessToken
	// ErrSessionEnded marks a refresh that completed after its session was
	// logged out or replaced. The current session is left untouched.
	ErrSessionEnded = refresh.ErrSessionEnded
	// ErrRefreshUnavailable marks a refresh that failed on the network or the
	// server side.
	ErrRefreshUnavailable = errors.New("authclient: refresh unavailable")

	// ErrPersistFailed is wrapped when the session changed in memory but
	// could not be written to storage.
	ErrPersistFailed = session.ErrPersistFailed
	// ErrStorageUnavailable is wrapped by storage backends that cannot be
	// reached.
	ErrStorageUnavailable = storage.ErrUnavailable
)
