package authtest

import (
	"context"
	"net/http"
	"strings"
)

type uidContextKey struct{}

// UserIDFromContext returns the user ID a guarded handler was called for.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(uidContextKey{}).(string)
	return uid, ok
}

// Guard rejects requests whose bearer token the server does not accept with
// 401 and passes the rest to next with the user ID in the context.
func (s *Server) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.rejected.Add(1)
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		uid, err := s.validateAccess(token)
		if err != nil {
			s.rejected.Add(1)
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), uidContextKey{}, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
