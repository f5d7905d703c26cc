package authclient

import (
	"context"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
)

func (c *Client) emitAudit(ctx context.Context, eventType string, success bool, requestID, reason string, err error) {
	if c == nil || c.audit == nil {
		return
	}
	event := internalaudit.NewEvent(eventType, success)
	event.RequestID = requestID
	event.Reason = reason
	if err != nil {
		event.Error = err.Error()
	}
	c.audit.Emit(ctx, event)
}
