package authclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/MrEthical07/authclient/storage"
	"github.com/MrEthical07/authclient/transport"
)

// Builder assembles a [Client]. Configure it once, then call Build.
type Builder struct {
	config     Config
	storage    storage.Storage
	httpClient *http.Client
	navigator  Navigator
	auditSink  AuditSink
	logger     *slog.Logger

	built bool
}

// New returns a Builder holding the default config.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole config.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the persistence backend. Defaults to an in-memory
// backend, which does not survive restarts.
func (b *Builder) WithStorage(s storage.Storage) *Builder {
	b.storage = s
	return b
}

// WithHTTPClient sets the client whose transport, jar and redirect policy
// are used for auth exchanges and as the base of the governed client.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithNavigator sets the component told to present the login surface.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithAuditSink sets the audit sink. Audit must also be enabled in config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the config and returns a ready Client. When
// Session.RestoreOnBuild is set the persisted session is loaded.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	backend := b.storage
	if backend == nil {
		backend = storage.NewMemory()
	}
	navigator := b.navigator
	if navigator == nil {
		navigator = noopNavigator{}
	}

	base := http.DefaultTransport
	authHTTP := &http.Client{}
	if b.httpClient != nil {
		*authHTTP = *b.httpClient
		if b.httpClient.Transport != nil {
			base = b.httpClient.Transport
		}
	}
	authHTTP.Transport = base
	authHTTP.Timeout = 0

	c := &Client{
		config:    cfg,
		store:     session.NewStore(backend, cfg.Session.StorageKey),
		navigator: navigator,
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Logger:     logger,
		}, b.auditSink),
	}

	c.flowDeps = flows.Deps{
		Login: flows.LoginDeps{
			Endpoint: cfg.Endpoints.LoginURL,
			Client:   authHTTP,
		},
		Refresh: flows.RefreshDeps{
			Endpoint:  cfg.Endpoints.RefreshURL,
			Client:    authHTTP,
			RequestID: uuid.NewString,
		},
		Logout: flows.LogoutDeps{
			Store: c.store,
			Navigate: func(ctx context.Context, reason string) {
				navigator.LoginRequired(ctx, LogoutReason(reason))
			},
		},
	}

	observer := clientObserver{c: c}
	c.refresher = refresh.New(c.store, refresh.ExchangerFunc(c.exchange), c, refresh.Config{
		Timeout:  cfg.Refresh.Timeout,
		Observer: observer,
		Logger:   logger,
	})

	pipeline, err := transport.New(c.store, c.refresher, c, transport.Config{
		Base:            base,
		RefreshURL:      cfg.Endpoints.RefreshURL,
		ProactiveWindow: cfg.Refresh.ProactiveWindow,
		Inspector:       jwt.NewInspector(),
		Observer:        observer,
		Logger:          logger,
	})
	if err != nil {
		c.audit.Close()
		return nil, err
	}
	c.pipeline = pipeline

	governed := &http.Client{}
	if b.httpClient != nil {
		*governed = *b.httpClient
	}
	governed.Transport = pipeline
	governed.Timeout = cfg.HTTP.Timeout
	c.httpClient = governed

	if cfg.Session.RestoreOnBuild {
		c.Restore(context.Background())
	}

	b.built = true

	return c, nil
}
