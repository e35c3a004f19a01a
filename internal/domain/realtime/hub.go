package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/area"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/metrics"
)

const sendBufferSize = 256

type brokerMessage struct {
	Payload          json.RawMessage `json:"payload"`
	SenderInstanceID string          `json:"sender_instance_id"`
}

// Session is one live websocket connection of an owner
type Session struct {
	OwnerID uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
}

// NewSession creates a session with a buffered send queue.
func NewSession(ownerID uuid.UUID, conn *websocket.Conn) *Session {
	return &Session{OwnerID: ownerID, Conn: conn, Send: make(chan []byte, sendBufferSize)}
}

// Hub tracks the sessions of this instance and fans owner events out to
// them, and through the broker to every other instance.
type Hub struct {
	// owner -> live sessions on this instance
	sessions map[uuid.UUID]map[*Session]bool
	mu       sync.RWMutex

	register   chan *Session
	unregister chan *Session

	ctx    context.Context
	cancel context.CancelFunc

	broker     Broker
	instanceID string
}

// NewHub creates a hub. A nil broker keeps fan-out local to this instance.
func NewHub(broker Broker) *Hub {
	return NewHubWithInstanceID(broker, uuid.NewString())
}

// NewHubWithInstanceID creates a new hub with explicit instance identifier.
func NewHubWithInstanceID(broker Broker, instanceID string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:   make(map[uuid.UUID]map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		ctx:        ctx,
		cancel:     cancel,
		broker:     broker,
		instanceID: instanceID,
	}
}

// Run starts the hub (call in goroutine)
func (h *Hub) Run() {
	if h.broker != nil {
		go h.runBrokerSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case s := <-h.register:
			h.mu.Lock()
			if h.sessions[s.OwnerID] == nil {
				h.sessions[s.OwnerID] = make(map[*Session]bool)
			}
			h.sessions[s.OwnerID][s] = true
			h.mu.Unlock()
			metrics.RealtimeSessions.Inc()
			log.Debug().Str("owner_id", s.OwnerID.String()).Msg("Session connected")

		case s := <-h.unregister:
			h.mu.Lock()
			if sessions, ok := h.sessions[s.OwnerID]; ok {
				if _, exists := sessions[s]; exists {
					delete(sessions, s)
					close(s.Send)
					metrics.RealtimeSessions.Dec()
				}
				if len(sessions) == 0 {
					delete(h.sessions, s.OwnerID)
				}
			}
			h.mu.Unlock()
			log.Debug().Str("owner_id", s.OwnerID.String()).Msg("Session disconnected")
		}
	}
}

func (h *Hub) runBrokerSubscriber() {
	for {
		err := h.broker.Subscribe(h.ctx, h.handleBrokerMessage)
		if h.ctx.Err() != nil {
			return
		}
		// polling covers whatever is missed while resubscribing
		log.Warn().Err(err).Msg("Realtime broker subscription ended, resubscribing")
		select {
		case <-h.ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (h *Hub) handleBrokerMessage(ownerID uuid.UUID, payload []byte) {
	var msg brokerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return
	}
	if msg.SenderInstanceID == h.instanceID {
		return
	}
	h.sendLocal(ownerID, msg.Payload)
}

// Register adds a session
func (h *Hub) Register(s *Session) {
	select {
	case h.register <- s:
	case <-h.ctx.Done():
	}
}

// Unregister removes a session
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.ctx.Done():
	}
}

// PublishAreaCreated implements area.Publisher.
func (h *Hub) PublishAreaCreated(ctx context.Context, ownerID uuid.UUID, a *area.SearchArea) error {
	data, err := encode(EventAreaCreated, a)
	if err != nil {
		return err
	}
	return h.deliver(ctx, ownerID, data)
}

// SendToUserJSON sends payload to every session of owner on every instance.
// It never blocks on slow sessions.
func (h *Hub) SendToUserJSON(ctx context.Context, ownerID uuid.UUID, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.deliver(ctx, ownerID, data)
}

func (h *Hub) deliver(ctx context.Context, ownerID uuid.UUID, data []byte) error {
	h.sendLocal(ownerID, data)
	if err := h.publish(ctx, ownerID, data); err != nil {
		metrics.RealtimeEventsTotal.WithLabelValues("publish_failed").Inc()
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	return nil
}

func (h *Hub) sendLocal(ownerID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.sessions[ownerID] {
		select {
		case s.Send <- data:
			metrics.RealtimeEventsTotal.WithLabelValues("sent").Inc()
		default:
			// Buffer full, the next poll or resync repairs this session
			metrics.RealtimeEventsTotal.WithLabelValues("dropped").Inc()
			log.Warn().Str("owner_id", ownerID.String()).Msg("WebSocket send buffer full")
		}
	}
}

func (h *Hub) publish(ctx context.Context, ownerID uuid.UUID, data []byte) error {
	if h.broker == nil {
		return nil
	}

	payload, err := json.Marshal(brokerMessage{Payload: data, SenderInstanceID: h.instanceID})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return h.broker.Publish(ctx, ownerID, payload)
}

// SessionCount returns the number of local sessions of owner.
func (h *Hub) SessionCount(ownerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[ownerID])
}

// GetConnectionCount returns number of local connections
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, sessions := range h.sessions {
		total += len(sessions)
	}
	return total
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown() {
	h.cancel()
}
