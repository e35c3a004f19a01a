package realtime

import (
	"encoding/json"
	"errors"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/area"
)

// EventType for WebSocket messages
type EventType string

const (
	EventAreaCreated   EventType = "area:created"
	EventAreasSnapshot EventType = "areas:snapshot"
	// EventResync is sent by clients to ask for a fresh snapshot.
	EventResync EventType = "resync"
)

// ErrDeliveryFailure is logged and counted, never returned to end users.
var ErrDeliveryFailure = errors.New("realtime delivery failed")

// Message is the websocket envelope.
type Message struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Snapshot is the payload of areas:snapshot.
type Snapshot struct {
	Items []area.SearchArea `json:"items"`
}

func encode(t EventType, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: t, Data: raw})
}
