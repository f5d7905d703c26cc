package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// LoginFailureKind classifies login outcomes for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidCredentials
	LoginFailureNetwork
	LoginFailureServer
	LoginFailureMalformedResponse
)

// LoginResult carries either the issued session material or failure metadata.
// ProgrammerErr is set only for failures caused by the caller or the
// configuration; the other failure kinds are expected outcomes.
type LoginResult struct {
	Failure       LoginFailureKind
	Err           error
	ProgrammerErr error
	Status        int
	AccessToken   string
	RefreshToken  string
	User          json.RawMessage
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Endpoint  string
	Client    Doer
	RequestID func() string
}

type loginResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user"`
}

// RunLogin posts credentials to the login endpoint and classifies the
// response. It never touches the credential store.
func RunLogin(ctx context.Context, credentials any, deps LoginDeps) LoginResult {
	if deps.Endpoint == "" || deps.Client == nil {
		return LoginResult{ProgrammerErr: errors.New("login endpoint not configured")}
	}

	req, err := newJSONRequest(ctx, deps.Endpoint, requestID(deps.RequestID), credentials)
	if err != nil {
		return LoginResult{ProgrammerErr: err}
	}

	resp, err := send(deps.Client, req)
	if err != nil {
		return LoginResult{Failure: LoginFailureNetwork, Err: err}
	}

	switch {
	case resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden ||
		(resp.Status >= 400 && resp.Status < 500 && resp.Status != http.StatusTooManyRequests):
		return LoginResult{
			Failure: LoginFailureInvalidCredentials,
			Status:  resp.Status,
			Err:     fmt.Errorf("login rejected with status %d", resp.Status),
		}
	case !isSuccess(resp.Status):
		return LoginResult{
			Failure: LoginFailureServer,
			Status:  resp.Status,
			Err:     fmt.Errorf("login failed with status %d", resp.Status),
		}
	}

	var body loginResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return LoginResult{
			Failure: LoginFailureMalformedResponse,
			Status:  resp.Status,
			Err:     fmt.Errorf("decode login response: %w", err),
		}
	}
	if body.Access == "" {
		return LoginResult{
			Failure: LoginFailureMalformedResponse,
			Status:  resp.Status,
			Err:     errors.New("login response has no access token"),
		}
	}

	user := body.User
	if string(user) == "null" {
		user = nil
	}

	return LoginResult{
		Status:       resp.Status,
		AccessToken:  body.Access,
		RefreshToken: body.Refresh,
		User:         user,
	}
}

func requestID(fn func() string) string {
	if fn == nil {
		return ""
	}
	return fn()
}
