package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// pendingRequest is one governed call: the caller's request, a way to replay
// its body and the token the last attempt carried.
type pendingRequest struct {
	orig      *http.Request
	requestID string
	getBody   func() (io.ReadCloser, error)
	firstBody io.ReadCloser
	token     string
	retried   bool
	// keepAuth leaves the caller's Authorization header untouched.
	keepAuth bool
}

// newPendingRequest prepares req for at most two sends. Bodies without
// GetBody are buffered once; the caller's body is consumed either way.
func newPendingRequest(req *http.Request, requestID string) (*pendingRequest, error) {
	p := &pendingRequest{orig: req, requestID: requestID}
	if req.Body == nil || req.Body == http.NoBody {
		return p, nil
	}

	if req.GetBody != nil {
		p.firstBody = req.Body
		p.getBody = req.GetBody
		return p, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	p.getBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	p.firstBody, _ = p.getBody()
	return p, nil
}

// build returns the outgoing request for one attempt with token attached.
func (p *pendingRequest) build(ctx context.Context, token string) (*http.Request, error) {
	out := p.orig.Clone(ctx)
	p.token = token

	switch {
	case p.keepAuth:
	case token != "":
		out.Header.Set("Authorization", "Bearer "+token)
	default:
		out.Header.Del("Authorization")
	}
	if p.requestID != "" && out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, p.requestID)
	}

	if p.getBody == nil {
		return out, nil
	}
	out.GetBody = p.getBody
	if p.firstBody != nil {
		out.Body = p.firstBody
		p.firstBody = nil
		return out, nil
	}
	body, err := p.getBody()
	if err != nil {
		return nil, fmt.Errorf("replay request body: %w", err)
	}
	out.Body = body
	return out, nil
}

func (p *pendingRequest) closeUnsent() {
	if p.firstBody != nil {
		_ = p.firstBody.Close()
		p.firstBody = nil
	}
}
