package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds one exchange when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

const flightKey = "refresh"

var (
	// ErrNoRefreshToken is returned when the session holds no refresh token.
	ErrNoRefreshToken = errors.New("refresh: no refresh token")
	// ErrTimeout is returned when the exchange did not settle within the
	// configured timeout.
	ErrTimeout = errors.New("refresh: exchange timed out")
	// ErrNoAccessToken is returned when the server accepted the exchange
	// but issued no access token.
	ErrNoAccessToken = errors.New("refresh: exchange returned no access token")
	// ErrSessionEnded is returned by a TokenWriter that refuses tokens
	// because the session the exchange belonged to has ended.
	ErrSessionEnded = errors.New("refresh: session ended during exchange")
)

// Tokens is the outcome of a successful exchange. Refresh is empty when the
// server did not rotate the refresh token.
type Tokens struct {
	Access  string
	Refresh string
}

// TokenSource is a read-only view of the current session tokens.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
}

// Exchanger performs one refresh exchange against the server.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (Tokens, error)
}

// ExchangerFunc adapts a function to Exchanger.
type ExchangerFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// Exchange calls f.
func (f ExchangerFunc) Exchange(ctx context.Context, refreshToken string) (Tokens, error) {
	return f(ctx, refreshToken)
}

// TokenWriter stores the tokens produced by a successful exchange.
// usedRefreshToken is the refresh token that was exchanged; the writer must
// return ErrSessionEnded when the session no longer holds it.
type TokenWriter interface {
	StoreRefreshedTokens(ctx context.Context, usedRefreshToken, accessToken, refreshToken string) error
}

// Observer receives refresh lifecycle notifications. Implementations must be
// cheap and must not block.
type Observer interface {
	RefreshStarted()
	RefreshJoined()
	RefreshSucceeded(elapsed time.Duration)
	RefreshFailed(elapsed time.Duration, err error)
}

// Config tunes a Refresher.
type Config struct {
	Timeout  time.Duration
	Observer Observer
	Logger   *slog.Logger
}

// Refresher is the single-flight token renewal coordinator. It is safe for
// concurrent use.
type Refresher struct {
	source    TokenSource
	exchanger Exchanger
	writer    TokenWriter
	timeout   time.Duration
	observer  Observer
	logger    *slog.Logger

	group     singleflight.Group
	inFlight  atomic.Bool
	exchanges atomic.Uint64
}

// New builds a Refresher.
func New(source TokenSource, exchanger Exchanger, writer TokenWriter, cfg Config) *Refresher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Refresher{
		source:    source,
		exchanger: exchanger,
		writer:    writer,
		timeout:   cfg.Timeout,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
	}
}

// Refresh returns a fresh access token. staleToken is the token the caller's
// failed request carried; if the session already holds a different access
// token it is returned without contacting the server.
//
// When an exchange is in flight the caller joins it. If ctx ends first the
// caller gets ctx.Err() and the exchange keeps running for the others.
func (r *Refresher) Refresh(ctx context.Context, staleToken string) (string, error) {
	if current := r.source.AccessToken(); current != "" && current != staleToken {
		return current, nil
	}

	leader := false
	ch := r.group.DoChan(flightKey, func() (any, error) {
		leader = true
		return r.exchange(ctx, staleToken)
	})

	select {
	case res := <-ch:
		if !leader && r.observer != nil {
			r.observer.RefreshJoined()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// InFlight reports whether an exchange is currently running.
func (r *Refresher) InFlight() bool {
	return r.inFlight.Load()
}

// Exchanges returns how many exchanges have been started.
func (r *Refresher) Exchanges() uint64 {
	return r.exchanges.Load()
}

func (r *Refresher) exchange(ctx context.Context, staleToken string) (string, error) {
	if current := r.source.AccessToken(); current != "" && current != staleToken {
		return current, nil
	}

	refreshToken := r.source.RefreshToken()
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	r.inFlight.Store(true)
	defer r.inFlight.Store(false)
	r.exchanges.Add(1)
	if r.observer != nil {
		r.observer.RefreshStarted()
	}

	exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	start := time.Now()
	tokens, err := r.exchanger.Exchange(exchangeCtx, refreshToken)
	if err == nil && tokens.Access == "" {
		err = ErrNoAccessToken
	}
	if err != nil {
		if errors.Is(exchangeCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		r.failed(time.Since(start), err)
		return "", err
	}

	if err := r.writer.StoreRefreshedTokens(exchangeCtx, refreshToken, tokens.Access, tokens.Refresh); err != nil {
		if errors.Is(err, ErrSessionEnded) {
			r.failed(time.Since(start), err)
			return "", err
		}
		// Any other error means the tokens are live in memory and only
		// durability failed.
		r.logger.Warn("authclient: persisting refreshed tokens failed", "error", err)
	}

	elapsed := time.Since(start)
	if r.observer != nil {
		r.observer.RefreshSucceeded(elapsed)
	}
	r.logger.Debug("authclient: access token refreshed", "elapsed", elapsed)
	return tokens.Access, nil
}

func (r *Refresher) failed(elapsed time.Duration, err error) {
	if r.observer != nil {
		r.observer.RefreshFailed(elapsed, err)
	}
	r.logger.Warn("authclient: refresh failed", "error", err, "elapsed", elapsed)
}
