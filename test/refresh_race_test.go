//go:build integration
// +build integration

package test

import (
	"bytes"
	"fmt"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/MrEthical07/authclient/authtest"
	"github.com/MrEthical07/authclient/storage"
	"golang.org/x/sync/errgroup"
)

func TestConcurrentReplayedPostsShareOneRefresh(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			backend := storage.NewRedis(mode.setup(t), "race:", time.Hour)
			srv := startServer(t, authtest.Config{RotateRefresh: true})
			c, nav := buildClient(t, srv, backend, "race")
			login(t, c)

			srv.ExpireAccessTokens()
			srv.SetRefreshDelay(40 * time.Millisecond)

			var g errgroup.Group
			for i := 0; i < 32; i++ {
				g.Go(func() error {
					payload := []byte(fmt.Sprintf(`{"n":%d}`, i))
					resp, err := c.HTTPClient().Post(srv.URL()+authtest.EchoPath, "application/json", bytes.NewReader(payload))
					if err != nil {
						return err
					}
					defer resp.Body.Close()
					if resp.StatusCode != http.StatusOK {
						t.Errorf("expected 200, got %d", resp.StatusCode)
						return nil
					}
					var echoed map[string]any
					if err := json.NewDecoder(resp.Body).Decode(&echoed); err != nil {
						return err
					}
					if _, ok := echoed["n"]; !ok {
						t.Errorf("replayed body lost: %v", echoed)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				t.Fatalf("request failed: %v", err)
			}

			if got := srv.RefreshCalls(); got != 1 {
				t.Fatalf("expected one refresh exchange, got %d", got)
			}
			if nav.count() != 0 {
				t.Fatal("no logout expected")
			}
		})
	}
}

func TestRevokedSessionEndsOnceUnderLoad(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			backend := storage.NewRedis(mode.setup(t), "race:", 0)
			srv := startServer(t, authtest.Config{})
			c, nav := buildClient(t, srv, backend, "revoked")
			login(t, c)

			srv.ExpireAccessTokens()
			srv.RevokeSessions()
			srv.SetRefreshDelay(20 * time.Millisecond)

			var g errgroup.Group
			for i := 0; i < 16; i++ {
				g.Go(func() error {
					resp, err := c.HTTPClient().Get(srv.URL() + authtest.MePath)
					if err == nil {
						resp.Body.Close()
					}
					return nil
				})
			}
			_ = g.Wait()

			if nav.count() != 1 {
				t.Fatalf("expected one logout, got %d", nav.count())
			}
			if c.IsAuthenticated() {
				t.Fatal("session must be cleared")
			}
		})
	}
}
