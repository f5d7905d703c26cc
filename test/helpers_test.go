//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/authtest"
	"github.com/MrEthical07/authclient/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode names a Redis backend the suite runs against.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes always includes miniredis. A real standalone Redis is added when
// REDIS_ADDR is set (e.g. "127.0.0.1:6379").
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				mr := miniredis.RunT(t)
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = rdb.Close() })
				return rdb
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				t.Cleanup(func() {
					rdb.FlushDB(context.Background())
					_ = rdb.Close()
				})
				return rdb
			},
		})
	}
	return modes
}

type navigations struct {
	mu      sync.Mutex
	reasons []authclient.LogoutReason
}

func (n *navigations) LoginRequired(_ context.Context, reason authclient.LogoutReason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *navigations) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reasons)
}

func startServer(t *testing.T, cfg authtest.Config) *authtest.Server {
	t.Helper()
	srv, err := authtest.Start(cfg)
	if err != nil {
		t.Fatalf("start auth server: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func buildClient(t *testing.T, srv *authtest.Server, backend storage.Storage, key string) (*authclient.Client, *navigations) {
	t.Helper()

	cfg := authclient.DefaultConfig()
	cfg.Endpoints.LoginURL = srv.URL() + authtest.LoginPath
	cfg.Endpoints.RefreshURL = srv.URL() + authtest.RefreshPath
	cfg.Session.StorageKey = key

	nav := &navigations{}
	c, err := authclient.New().
		WithConfig(cfg).
		WithStorage(backend).
		WithNavigator(nav).
		Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(c.Close)
	return c, nav
}

func login(t *testing.T, c *authclient.Client) {
	t.Helper()
	res, err := c.Login(context.Background(), authclient.Credentials{"username": "alice", "password": "correct-horse"})
	if err != nil || !res.Success {
		t.Fatalf("login failed: %v %+v", err, res)
	}
}
