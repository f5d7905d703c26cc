package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/refresh"
)

type testSession struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (s *testSession) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *testSession) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *testSession) StoreRefreshedTokens(_ context.Context, used, access, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refresh != used {
		return refresh.ErrSessionEnded
	}
	s.access = access
	if refreshToken != "" {
		s.refresh = refreshToken
	}
	return nil
}

func (s *testSession) TerminateSession(context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = "", ""
}

type recordingTerminator struct {
	*testSession
	calls atomic.Int32
}

func (r *recordingTerminator) TerminateSession(ctx context.Context, cause error) {
	r.calls.Add(1)
	r.testSession.TerminateSession(ctx, cause)
}

// api accepts only tokens in valid and records what it saw.
type api struct {
	mu     sync.Mutex
	valid  map[string]bool
	seen   []string
	bodies []string
	ids    []string
	hits   atomic.Int32
}

func newAPI(valid ...string) *api {
	a := &api{valid: map[string]bool{}}
	for _, v := range valid {
		a.valid[v] = true
	}
	return a
}

func (a *api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.hits.Add(1)
	body, _ := io.ReadAll(r.Body)
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	a.mu.Lock()
	a.seen = append(a.seen, r.Header.Get("Authorization"))
	a.bodies = append(a.bodies, string(body))
	a.ids = append(a.ids, r.Header.Get(RequestIDHeader))
	ok := a.valid[token]
	a.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"expired"}`))
		return
	}
	_, _ = w.Write([]byte("ok"))
}

type fixture struct {
	session    *testSession
	terminator *recordingTerminator
	refresher  *refresh.Refresher
	exchanges  atomic.Int32
	pipeline   *Pipeline
	client     *http.Client
}

func newFixture(t *testing.T, exchange refresh.ExchangerFunc, cfg Config) *fixture {
	t.Helper()
	f := &fixture{session: &testSession{access: "A1", refresh: "R1"}}
	f.terminator = &recordingTerminator{testSession: f.session}
	counted := refresh.ExchangerFunc(func(ctx context.Context, rt string) (refresh.Tokens, error) {
		f.exchanges.Add(1)
		return exchange(ctx, rt)
	})
	f.refresher = refresh.New(f.session, counted, f.session, refresh.Config{Timeout: time.Second})

	p, err := New(f.session, f.refresher, f.terminator, cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	f.pipeline = p
	f.client = &http.Client{Transport: p}
	return f
}

func rotateTo(token string) refresh.ExchangerFunc {
	return func(context.Context, string) (refresh.Tokens, error) {
		return refresh.Tokens{Access: token}, nil
	}
}

func TestPipelineAttachesBearerToken(t *testing.T) {
	a := newAPI("A1")
	srv := httptest.NewServer(a)
	defer srv.Close()

	f := newFixture(t, rotateTo("A2"), Config{})
	resp, err := f.client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if a.seen[0] != "Bearer A1" {
		t.Fatalf("expected bearer A1, got %q", a.seen[0])
	}
	if a.ids[0] == "" {
		t.Fatal("expected generated request id")
	}
	if f.exchanges.Load() != 0 {
		t.Fatal("no refresh expected on success")
	}
}

func TestPipelineSendsUnauthenticatedWithoutSession(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := newFixture(t, rotateTo("A2"), Config{})
	f.session.access, f.session.refresh = "", ""

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Authorization", "Bearer leftover")
	resp, err := f.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := gotAuth.Load().(string); got != "" {
		t.Fatalf("expected no Authorization header, got %q", got)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 returned unchanged, got %d", resp.StatusCode)
	}
	if f.exchanges.Load() != 0 || f.terminator.calls.Load() != 0 {
		t.Fatal("no refresh or logout expected without a session")
	}
	if req.Header.Get("Authorization") != "Bearer leftover" {
		t.Fatal("caller request must not be modified")
	}
}

func TestPipelineRefreshesAndRetriesOnce(t *testing.T) {
	a := newAPI("A2")
	srv := httptest.NewServer(a)
	defer srv.Close()

	f := newFixture(t, rotateTo("A2"), Config{})
	resp, err := f.client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected retried success, got %d %q", resp.StatusCode, body)
	}
	if f.exchanges.Load() != 1 {
		t.Fatalf("expected one refresh, got %d", f.exchanges.Load())
	}
	if len(a.seen) != 2 || a.seen[0] != "Bearer A1" || a.seen[1] != "Bearer A2" {
		t.Fatalf("unexpected attempts: %v", a.seen)
	}
	if a.ids[0] != a.ids[1] {
		t.Fatalf("retry must keep request id: %v", a.ids)
	}
	if f.session.AccessToken() != "A2" {
		t.Fatalf("store must hold A2, got %q", f.session.AccessToken())
	}
}

func TestPipelineRetryResultIsFinal(t *testing.T) {
	a := newAPI()
	srv := httptest.NewServer(a)
	defer srv.Close()

	f := newFixture(t, rotateTo("A2"), Config{})
	resp, err := f.client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected final 401, got %d", resp.StatusCode)
	}
	if got := a.hits.Load(); got != 2 {
		t.Fatalf("expected exactly two sends, got %d", got)
	}
	if f.exchanges.Load() != 1 {
		t.Fatalf("expected one refresh, got %d", f.exchanges.Load())
	}
	if f.terminator.calls.Load() != 0 {
		t.Fatal("401 after retry must not log out")
	}
}

func TestPipelineRefreshFailureTerminatesSession(t *testing.T) {
	a := newAPI()
	srv := httptest.NewServer(a)
	defer srv.Close()

	rejected := errors.New("refresh rejected")
	f := newFixture(t, func(context.Context, string) (refresh.Tokens, error) {
		return refresh.Tokens{}, rejected
	}, Config{})

	_, err := f.client.Get(srv.URL)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !errors.Is(err, rejected) {
		t.Fatalf("expected refresh cause in chain, got %v", err)
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T", err)
	}
	if f.terminator.calls.Load() != 1 {
		t.Fatalf("expected one termination, got %d", f.terminator.calls.Load())
	}
	if got := a.hits.Load(); got != 1 {
		t.Fatalf("no retry expected after refresh failure, got %d sends", got)
	}
	if f.session.AccessToken() != "" {
		t.Fatal("session must be cleared")
	}
}

func TestPipelineConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	a := newAPI("A2")
	srv := httptest.NewServer(a)
	defer srv.Close()

	release := make(chan struct{})
	f := newFixture(t, func(context.Context, string) (refresh.Tokens, error) {
		<-release
		return refresh.Tokens{Access: "A2"}, nil
	}, Config{})

	const n = 12
	var wg sync.WaitGroup
	statuses := make(chan int, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.client.Get(srv.URL)
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for !f.refresher.InFlight() {
		if time.Now().After(deadline) {
			t.Fatal("refresh never started")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(statuses)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	for status := range statuses {
		if status != http.StatusOK {
			t.Fatalf("expected 200 after retry, got %d", status)
		}
	}
	if got := f.exchanges.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh exchange, got %d", got)
	}
}

func TestPipelineRefreshEndpointUnauthorizedIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := newFixture(t, rotateTo("A2"), Config{RefreshURL: srv.URL + "/auth/refresh"})
	_, err := f.client.Post(srv.URL+"/auth/refresh", "application/json", strings.NewReader(`{"refresh":"R1"}`))
	if !errors.Is(err, ErrRefreshRejected) {
		t.Fatalf("expected ErrRefreshRejected, got %v", err)
	}
	if f.exchanges.Load() != 0 {
		t.Fatal("refresh endpoint 401 must never trigger a refresh")
	}
	if f.terminator.calls.Load() != 1 {
		t.Fatalf("expected logout, got %d terminations", f.terminator.calls.Load())
	}
}

func TestPipelineRefreshCallMarkerIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := newFixture(t, rotateTo("A2"), Config{})
	req, _ := http.NewRequestWithContext(WithRefreshCall(context.Background()), http.MethodPost, srv.URL, nil)
	_, err := f.client.Do(req)
	if !errors.Is(err, ErrRefreshRejected) {
		t.Fatalf("expected ErrRefreshRejected, got %v", err)
	}
	if f.exchanges.Load() != 0 {
		t.Fatal("marked refresh call must not trigger a refresh")
	}
}

func TestPipelineRefreshCallCarriesNoSessionToken(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"access":"A2"}`))
	}))
	defer srv.Close()

	f := newFixture(t, rotateTo("A2"), Config{RefreshURL: srv.URL + "/auth/refresh"})
	resp, err := f.client.Post(srv.URL+"/auth/refresh", "application/json", strings.NewReader(`{"refresh":"R1"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got := gotAuth.Load().(string); got != "" {
		t.Fatalf("refresh call must not carry the session bearer, got %q", got)
	}
}

func TestPipelineRefreshFinishingAfterLogoutIsNotRetried(t *testing.T) {
	a := newAPI("A2")
	srv := httptest.NewServer(a)
	defer srv.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, func(context.Context, string) (refresh.Tokens, error) {
		close(entered)
		<-release
		return refresh.Tokens{Access: "A2"}, nil
	}, Config{})

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := f.client.Get(srv.URL)
		done <- result{resp, err}
	}()

	<-entered
	// The user logs out while the exchange is still running.
	f.session.mu.Lock()
	f.session.access, f.session.refresh = "", ""
	f.session.mu.Unlock()
	close(release)

	res := <-done
	if res.err == nil {
		res.resp.Body.Close()
		t.Fatalf("expected failure, got status %d", res.resp.StatusCode)
	}
	if !errors.Is(res.err, ErrSessionExpired) || !errors.Is(res.err, refresh.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionExpired wrapping ErrSessionEnded, got %v", res.err)
	}
	if got := a.hits.Load(); got != 1 {
		t.Fatalf("request must not be resent, got %d hits", got)
	}
	if f.terminator.calls.Load() != 0 {
		t.Fatal("an ended refresh must not terminate the current session")
	}
	if f.session.AccessToken() != "" {
		t.Fatal("ended session must stay logged out")
	}
}

// onceReader hides GetBody so the pipeline has to buffer.
type onceReader struct{ io.Reader }

func TestPipelineReplaysBodyOnRetry(t *testing.T) {
	tests := []struct {
		name string
		body func() io.Reader
	}{
		{"with GetBody", func() io.Reader { return bytes.NewReader([]byte(`{"x":1}`)) }},
		{"buffered", func() io.Reader { return onceReader{strings.NewReader(`{"x":1}`)} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAPI("A2")
			srv := httptest.NewServer(a)
			defer srv.Close()

			f := newFixture(t, rotateTo("A2"), Config{})
			resp, err := f.client.Post(srv.URL, "application/json", tt.body())
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if len(a.bodies) != 2 || a.bodies[0] != `{"x":1}` || a.bodies[1] != `{"x":1}` {
				t.Fatalf("body not replayed: %q", a.bodies)
			}
		})
	}
}

func TestPipelinePassesThroughOtherStatuses(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		f := newFixture(t, rotateTo("A2"), Config{})
		resp, err := f.client.Get(srv.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		srv.Close()

		if resp.StatusCode != status {
			t.Fatalf("expected %d unchanged, got %d", status, resp.StatusCode)
		}
		if f.exchanges.Load() != 0 || f.terminator.calls.Load() != 0 {
			t.Fatalf("status %d must not refresh or log out", status)
		}
	}
}

func TestPipelinePassesThroughTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := newFixture(t, rotateTo("A2"), Config{})
	_, err := f.client.Get(url)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Fatal("network failure must not be reported as session expiry")
	}
	if f.exchanges.Load() != 0 || f.terminator.calls.Load() != 0 {
		t.Fatal("network failure must not refresh or log out")
	}
	if f.session.AccessToken() != "A1" {
		t.Fatal("session must survive network failures")
	}
}

func TestPipelineCallerCancellationDuringRefresh(t *testing.T) {
	a := newAPI()
	srv := httptest.NewServer(a)
	defer srv.Close()

	release := make(chan struct{})
	defer close(release)
	f := newFixture(t, func(ctx context.Context, _ string) (refresh.Tokens, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return refresh.Tokens{Access: "A2"}, nil
	}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	go func() {
		for !f.refresher.InFlight() {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := f.client.Do(req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.terminator.calls.Load() != 0 {
		t.Fatal("caller cancellation must not log out")
	}
}

func TestPipelineProactiveRefresh(t *testing.T) {
	manager, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("test-secret-0123456789abcdef0123"),
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	expiring, _ := manager.CreateAccessWithTTL("u1", 5*time.Second)
	fresh, _ := manager.CreateAccessWithTTL("u1", time.Hour)

	a := newAPI(expiring, fresh)
	srv := httptest.NewServer(a)
	defer srv.Close()

	f := newFixture(t, rotateTo(fresh), Config{ProactiveWindow: 30 * time.Second})
	f.session.access = expiring

	resp, err := f.client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if f.exchanges.Load() != 1 {
		t.Fatalf("expected proactive refresh, got %d exchanges", f.exchanges.Load())
	}
	if len(a.seen) != 1 || a.seen[0] != "Bearer "+fresh {
		t.Fatalf("expected single send with fresh token, got %d sends", len(a.seen))
	}

	resp, err = f.client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if f.exchanges.Load() != 1 {
		t.Fatal("fresh token must not trigger another refresh")
	}
}

func TestRedactDropsQueryAndCredentials(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://user:pw@api.example.com/v1/items?token=secret#frag", nil)
	got := redact(req.URL)
	if got != "https://api.example.com/v1/items" {
		t.Fatalf("unexpected redacted url %q", got)
	}
}
