package transport

import (
	"context"
	"testing"
)

func TestContextMarkers(t *testing.T) {
	ctx := context.Background()
	if IsRefreshCall(ctx) || isRetried(ctx) {
		t.Fatal("plain context must carry no markers")
	}
	if !IsRefreshCall(WithRefreshCall(ctx)) {
		t.Fatal("expected refresh call marker")
	}
	if !isRetried(withRetried(ctx)) {
		t.Fatal("expected retried marker")
	}
}
