package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/authtest"
	"github.com/MrEthical07/authclient/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		clients     = flag.Int("clients", 32, "number of independent sessions")
		concurrency = flag.Int("concurrency", 64, "concurrent requests per client in each wave")
		waves       = flag.Int("waves", 5, "number of expire-then-burst waves")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "authclient-loadtest:", "session key prefix")
		verbose     = flag.Bool("v", false, "log client activity")
	)
	flag.Parse()

	if *clients <= 0 || *concurrency <= 0 || *waves <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, and waves must be > 0")
		os.Exit(2)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer rdb.Close()
	backend := storage.NewRedis(rdb, *prefix, 0)

	srv, err := authtest.Start(authtest.Config{RotateRefresh: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start auth server: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()

	ctx := context.Background()
	sessions := make([]*authclient.Client, *clients)
	for i := range sessions {
		cfg := authclient.DefaultConfig()
		cfg.Endpoints.LoginURL = srv.URL() + authtest.LoginPath
		cfg.Endpoints.RefreshURL = srv.URL() + authtest.RefreshPath
		cfg.Session.StorageKey = fmt.Sprintf("client-%d", i)
		cfg.Metrics.EnableLatencyHistograms = true

		c, err := authclient.New().WithConfig(cfg).WithStorage(backend).WithLogger(logger).Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build client %d: %v\n", i, err)
			os.Exit(1)
		}
		defer c.Close()

		res, err := c.Login(ctx, authclient.Credentials{"username": "alice", "password": "correct-horse"})
		if err != nil || !res.Success {
			fmt.Fprintf(os.Stderr, "login client %d failed: %v %v\n", i, err, res)
			os.Exit(1)
		}
		sessions[i] = c
	}

	var stats phaseStats
	for w := 0; w < *waves; w++ {
		srv.ExpireAccessTokens()
		s, err := runWave(ctx, srv.URL()+authtest.MePath, sessions, *concurrency)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wave %d: %v\n", w, err)
			os.Exit(1)
		}
		stats = stats.merge(s)
	}

	var retried, joined uint64
	for _, c := range sessions {
		snap := c.MetricsSnapshot()
		retried += snap.Counters[authclient.MetricRequestRetried]
		joined += snap.Counters[authclient.MetricRefreshJoined]
	}

	fmt.Println("---- results ----")
	printStats("requests", stats)
	expected := int64(*clients * *waves)
	fmt.Printf("refresh exchanges: %d (expected %d)\n", srv.RefreshCalls(), expected)
	fmt.Printf("retried requests: %d joined refreshes: %d\n", retried, joined)
	if srv.RefreshCalls() != expected {
		fmt.Fprintln(os.Stderr, "single-flight violated: refresh count does not match one per client per wave")
		os.Exit(1)
	}
}

func runWave(ctx context.Context, url string, clients []*authclient.Client, concurrency int) (phaseStats, error) {
	var (
		mu        sync.Mutex
		failures  int64
		latencies = make([]time.Duration, 0, len(clients)*concurrency)
	)

	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for _, c := range clients {
		hc := c.HTTPClient()
		for i := 0; i < concurrency; i++ {
			g.Go(func() error {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				if err != nil {
					return err
				}
				t0 := time.Now()
				resp, err := hc.Do(req)
				d := time.Since(t0)
				if err != nil {
					return err
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return phaseStats{}, err
	}
	return phaseStats{total: time.Since(start), samples: latencies, failures: failures}, nil
}

type phaseStats struct {
	total    time.Duration
	samples  []time.Duration
	failures int64
}

func (s phaseStats) merge(o phaseStats) phaseStats {
	return phaseStats{
		total:    s.total + o.total,
		samples:  append(s.samples, o.samples...),
		failures: s.failures + o.failures,
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	return sorted[(len(sorted)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	sorted := append([]time.Duration(nil), s.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var opsPerS float64
	if s.total > 0 {
		opsPerS = float64(len(sorted)) / s.total.Seconds()
	}
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		len(sorted),
		s.failures,
		s.total.Round(time.Millisecond),
		opsPerS,
		percentile(sorted, 50).Round(time.Microsecond),
		percentile(sorted, 95).Round(time.Microsecond),
		percentile(sorted, 99).Round(time.Microsecond),
	)
}
