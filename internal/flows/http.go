package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBody bounds how much of an auth endpoint response is read.
const maxResponseBody = 1 << 20

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

type exchangeResponse struct {
	Status int
	Body   []byte
}

// newJSONRequest builds a POST request. Its errors are programmer errors
// (unencodable payload, malformed endpoint), never transport failures.
func newJSONRequest(ctx context.Context, endpoint, requestID string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}
	return req, nil
}

// send performs req and reads a bounded response body. Any error means no
// usable response was received.
func send(client Doer, req *http.Request) (*exchangeResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &exchangeResponse{Status: resp.StatusCode, Body: data}, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
