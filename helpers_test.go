package authclient

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/authclient/authtest"
	"github.com/MrEthical07/authclient/storage"
)

type recordingNavigator struct {
	mu      sync.Mutex
	reasons []LogoutReason
}

func (n *recordingNavigator) LoginRequired(_ context.Context, reason LogoutReason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNavigator) Reasons() []LogoutReason {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]LogoutReason(nil), n.reasons...)
}

func startAuthServer(t *testing.T, cfg authtest.Config) *authtest.Server {
	t.Helper()
	srv, err := authtest.Start(cfg)
	if err != nil {
		t.Fatalf("start auth server: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *authtest.Server) Config {
	cfg := DefaultConfig()
	cfg.Endpoints.LoginURL = srv.URL() + authtest.LoginPath
	cfg.Endpoints.RefreshURL = srv.URL() + authtest.RefreshPath
	return cfg
}

type clientOptions struct {
	cfg     *Config
	storage storage.Storage
	sink    AuditSink
}

func newTestClient(t *testing.T, srv *authtest.Server, opts clientOptions) (*Client, *recordingNavigator) {
	t.Helper()

	cfg := testConfig(srv)
	if opts.cfg != nil {
		cfg = *opts.cfg
	}
	nav := &recordingNavigator{}
	b := New().WithConfig(cfg).WithNavigator(nav)
	if opts.storage != nil {
		b.WithStorage(opts.storage)
	}
	if opts.sink != nil {
		b.WithAuditSink(opts.sink)
	}

	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c, nav
}

func aliceCredentials() Credentials {
	return Credentials{"username": "alice", "password": "correct-horse"}
}

func mustLogin(t *testing.T, c *Client) {
	t.Helper()
	res, err := c.Login(context.Background(), aliceCredentials())
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if !res.Success {
		t.Fatalf("login failed: %v", res.Err)
	}
}
