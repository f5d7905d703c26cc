package authtest

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authclient/jwt"
)

// Endpoint paths served by Server.
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
	MePath      = "/api/me"
	EchoPath    = "/api/echo"
)

// User is an account the server accepts.
type User struct {
	ID       string
	Username string
	Password string
}

// Config tunes a Server.
type Config struct {
	// AccessTTL is the lifetime of issued access tokens. Defaults to 15m.
	AccessTTL time.Duration
	// RotateRefresh issues a new refresh token on every refresh and
	// invalidates the old one.
	RotateRefresh bool
	// Users defaults to a single user "alice" with password "correct-horse".
	Users []User
	// SigningKey is the HS256 key. A random key is used when empty.
	SigningKey []byte
}

// Server is a fake auth API. Its zero value is not usable; call New.
type Server struct {
	cfg    Config
	tokens *jwt.Manager
	users  map[string]User
	mux    *http.ServeMux
	ts     *httptest.Server

	mu       sync.Mutex
	live     map[string]string
	sessions map[sessionID]session

	refreshDelay  atomic.Int64
	refreshStatus atomic.Int32

	logins    atomic.Int64
	refreshes atomic.Int64
	rejected  atomic.Int64
}

type session struct {
	uid  string
	hash [32]byte
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
}

// New builds a Server without starting a listener. Use Handler to mount it
// or Start for an httptest listener.
func New(cfg Config) (*Server, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if len(cfg.Users) == 0 {
		cfg.Users = []User{{ID: "u1", Username: "alice", Password: "correct-horse"}}
	}
	if len(cfg.SigningKey) == 0 {
		cfg.SigningKey = make([]byte, 32)
		if _, err := rand.Read(cfg.SigningKey); err != nil {
			return nil, fmt.Errorf("authtest: signing key: %w", err)
		}
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.AccessTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.SigningKey,
		Issuer:        "authtest",
	})
	if err != nil {
		return nil, fmt.Errorf("authtest: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		tokens:   tokens,
		users:    make(map[string]User, len(cfg.Users)),
		live:     make(map[string]string),
		sessions: make(map[sessionID]session),
	}
	for _, u := range cfg.Users {
		s.users[u.Username] = u
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+LoginPath, s.handleLogin)
	mux.HandleFunc("POST "+RefreshPath, s.handleRefresh)
	mux.Handle("GET "+MePath, s.Guard(http.HandlerFunc(s.handleMe)))
	mux.Handle("POST "+EchoPath, s.Guard(http.HandlerFunc(s.handleEcho)))
	s.mux = mux

	return s, nil
}

// Start serves the handler on a local httptest listener.
func Start(cfg Config) (*Server, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	s.ts = httptest.NewServer(s.mux)
	return s, nil
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	if s.ts == nil {
		return ""
	}
	return s.ts.URL
}

// Close shuts a started server down.
func (s *Server) Close() {
	if s.ts != nil {
		s.ts.Close()
	}
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = make(map[string]string)
}

// RevokeSessions invalidates every refresh token issued so far.
func (s *Server) RevokeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[sessionID]session)
}

// SetRefreshDelay makes the refresh endpoint wait d before answering.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

// SetRefreshFailure makes the refresh endpoint answer status. Zero restores
// normal behavior.
func (s *Server) SetRefreshFailure(status int) {
	s.refreshStatus.Store(int32(status))
}

// IssueAccessToken signs a live access token for uid that expires after
// ttl. Useful for seeding sessions without a login call.
func (s *Server) IssueAccessToken(uid string, ttl time.Duration) (string, error) {
	token, err := s.tokens.CreateAccessWithTTL(uid, ttl)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.live[token] = uid
	s.mu.Unlock()
	return token, nil
}

// LoginCalls returns how many login requests were received.
func (s *Server) LoginCalls() int64 { return s.logins.Load() }

// RefreshCalls returns how many refresh requests were received.
func (s *Server) RefreshCalls() int64 { return s.refreshes.Load() }

// RejectedCalls returns how many guarded requests were answered 401.
func (s *Server) RejectedCalls() int64 { return s.rejected.Load() }

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.logins.Add(1)

	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	u, ok := s.users[req.Username]
	if !ok || subtle.ConstantTimeCompare([]byte(u.Password), []byte(req.Password)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	access, err := s.IssueAccessToken(u.ID, s.cfg.AccessTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	refresh, err := s.newSession(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	user, _ := json.Marshal(map[string]string{"id": u.ID, "username": u.Username})
	writeJSON(w, http.StatusOK, tokenResponse{Access: access, Refresh: refresh, User: user})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshes.Add(1)

	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if status := int(s.refreshStatus.Load()); status != 0 {
		writeError(w, status, "forced_failure")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	uid, next, err := s.useRefreshToken(req.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_grant")
		return
	}

	access, err := s.IssueAccessToken(uid, s.cfg.AccessTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Access: access, Refresh: next})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"id": uid})
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
	_, _ = io.Copy(w, io.LimitReader(r.Body, 1<<20))
}

func (s *Server) validateAccess(token string) (string, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	uid, ok := s.live[token]
	s.mu.Unlock()
	if !ok || uid != claims.UID {
		return "", errors.New("authtest: access token revoked")
	}
	return uid, nil
}

func (s *Server) newSession(uid string) (string, error) {
	sid, err := newSessionID()
	if err != nil {
		return "", err
	}
	secret, err := newRefreshSecret()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[sid] = session{uid: uid, hash: hashSecret(secret)}
	s.mu.Unlock()
	return encodeRefreshToken(sid, secret), nil
}

// useRefreshToken validates token and, with rotation on, replaces it. next
// is empty when the token was not rotated.
func (s *Server) useRefreshToken(token string) (uid, next string, err error) {
	sid, secret, err := decodeRefreshToken(token)
	if err != nil {
		return "", "", err
	}
	provided := hashSecret(secret)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sid]
	if !ok || subtle.ConstantTimeCompare(sess.hash[:], provided[:]) != 1 {
		return "", "", errors.New("authtest: refresh token not recognized")
	}
	if !s.cfg.RotateRefresh {
		return sess.uid, "", nil
	}

	nextSecret, err := newRefreshSecret()
	if err != nil {
		return "", "", err
	}
	sess.hash = hashSecret(nextSecret)
	s.sessions[sid] = sess
	return sess.uid, encodeRefreshToken(sid, nextSecret), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
