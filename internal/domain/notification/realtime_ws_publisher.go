package notification

import (
	"context"

	"github.com/google/uuid"
)

// EventNotificationNew is the websocket event type carrying an Event.
const EventNotificationNew = "notification:new"

type wsUserSender interface {
	SendToUserJSON(ctx context.Context, ownerID uuid.UUID, payload any) error
}

// WSPublisher publishes notification:new events over websocket.
type WSPublisher struct {
	sender wsUserSender
}

// NewWSPublisher creates a WS-backed notifier.
func NewWSPublisher(sender wsUserSender) *WSPublisher {
	return &WSPublisher{sender: sender}
}

func (p *WSPublisher) Notify(ctx context.Context, ownerID uuid.UUID, event Event) error {
	if p == nil || p.sender == nil {
		return nil
	}

	payload := map[string]interface{}{
		"type": EventNotificationNew,
		"data": event,
	}

	return p.sender.SendToUserJSON(ctx, ownerID, payload)
}
