package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/authclient/transport"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureConfig
	RefreshFailureNoToken
	RefreshFailureRejected
	RefreshFailureNetwork
	RefreshFailureTimeout
	RefreshFailureServer
	RefreshFailureMalformedResponse
)

// RefreshResult carries either the new token material or failure metadata.
// RefreshToken is empty when the server did not rotate the refresh token.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	Status       int
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Endpoint  string
	Client    Doer
	RequestID func() string
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RunRefresh exchanges refreshToken for a new access token. A deadline on ctx
// that expires mid-exchange is reported as RefreshFailureTimeout.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if deps.Endpoint == "" || deps.Client == nil {
		return RefreshResult{Failure: RefreshFailureConfig, Err: errors.New("refresh endpoint not configured")}
	}
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureNoToken, Err: errors.New("no refresh token available")}
	}

	req, err := newJSONRequest(transport.WithRefreshCall(ctx), deps.Endpoint, requestID(deps.RequestID), refreshRequest{Refresh: refreshToken})
	if err != nil {
		return RefreshResult{Failure: RefreshFailureConfig, Err: err}
	}

	resp, err := send(deps.Client, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return RefreshResult{Failure: RefreshFailureTimeout, Err: fmt.Errorf("refresh timed out: %w", err)}
		}
		return RefreshResult{Failure: RefreshFailureNetwork, Err: fmt.Errorf("refresh request failed: %w", err)}
	}

	if !isSuccess(resp.Status) {
		if isRejection(resp) {
			return RefreshResult{
				Failure: RefreshFailureRejected,
				Status:  resp.Status,
				Err:     fmt.Errorf("refresh token rejected with status %d", resp.Status),
			}
		}
		return RefreshResult{
			Failure: RefreshFailureServer,
			Status:  resp.Status,
			Err:     fmt.Errorf("refresh failed with status %d", resp.Status),
		}
	}

	var body refreshResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return RefreshResult{
			Failure: RefreshFailureMalformedResponse,
			Status:  resp.Status,
			Err:     fmt.Errorf("decode refresh response: %w", err),
		}
	}
	if body.Access == "" {
		return RefreshResult{
			Failure: RefreshFailureMalformedResponse,
			Status:  resp.Status,
			Err:     errors.New("refresh response has no access token"),
		}
	}

	return RefreshResult{
		Status:       resp.Status,
		AccessToken:  body.Access,
		RefreshToken: body.Refresh,
	}
}

func isRejection(resp *exchangeResponse) bool {
	switch resp.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		var body errorResponse
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return false
		}
		return body.Error == "invalid_grant" || body.Error == "invalid_token"
	}
	return false
}
