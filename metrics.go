package authclient

import (
	"context"
	"time"
)

// clientObserver feeds refresher and pipeline notifications into the
// client's metrics and audit trail.
type clientObserver struct {
	c *Client
}

func (o clientObserver) RefreshStarted() {
	o.c.metrics.Inc(MetricRefreshStarted)
}

func (o clientObserver) RefreshJoined() {
	o.c.metrics.Inc(MetricRefreshJoined)
}

func (o clientObserver) RefreshSucceeded(elapsed time.Duration) {
	o.c.metrics.Inc(MetricRefreshSuccess)
	o.c.metrics.Observe(MetricRefreshLatency, elapsed)
	o.c.emitAudit(context.Background(), AuditRefreshSuccess, true, "", "", nil)
}

func (o clientObserver) RefreshFailed(elapsed time.Duration, err error) {
	o.c.metrics.Inc(MetricRefreshFailure)
	o.c.metrics.Observe(MetricRefreshLatency, elapsed)
	o.c.emitAudit(context.Background(), AuditRefreshFailure, false, "", "", err)
}

func (o clientObserver) RequestUnauthorized() {
	o.c.metrics.Inc(MetricRequestUnauthorized)
}

func (o clientObserver) RequestRetried() {
	o.c.metrics.Inc(MetricRequestRetried)
}

// MetricsSnapshot returns the current counters. Metric exporters read it.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return c.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped because the
// dispatcher queue was full.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}
