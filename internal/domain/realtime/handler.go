package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/area"
	"github.com/buzzhunt/buzzhunt-api/internal/middleware"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// AreaLister is the authoritative source for snapshots.
type AreaLister interface {
	ListAreas(ctx context.Context, ownerID uuid.UUID) ([]area.SearchArea, error)
}

// Handler upgrades authenticated requests to websocket sessions.
type Handler struct {
	hub      *Hub
	areas    AreaLister
	upgrader websocket.Upgrader
}

// NewHandler creates realtime handler
func NewHandler(hub *Hub, areas AreaLister, allowedOrigins []string) *Handler {
	return &Handler{
		hub:   hub,
		areas: areas,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				// Allow all in development
				if len(allowedOrigins) == 0 || origin == "" {
					return true
				}

				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}

				log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
				return false
			},
		},
	}
}

// WebSocket handles GET /ws. The first frame is always an areas:snapshot.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	session := NewSession(ownerID, conn)

	// Register before the snapshot so nothing created in between is lost.
	h.hub.Register(session)
	h.sendSnapshot(session)

	go h.wsReader(session)
	go h.wsWriter(session)
}

func (h *Handler) sendSnapshot(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	areas, err := h.areas.ListAreas(ctx, s.OwnerID)
	if err != nil {
		log.Warn().Err(err).Str("owner_id", s.OwnerID.String()).Msg("Snapshot query failed")
		return
	}

	data, err := encode(EventAreasSnapshot, Snapshot{Items: areas})
	if err != nil {
		return
	}

	// Send is only closed after wsReader unregisters, so this cannot race a close.
	select {
	case s.Send <- data:
	default:
		log.Warn().Str("owner_id", s.OwnerID.String()).Msg("Snapshot dropped, send buffer full")
	}
}

func (h *Handler) wsReader(s *Session) {
	defer func() {
		h.hub.Unregister(s)
		s.Conn.Close()
	}()

	s.Conn.SetReadLimit(maxMessageSize)
	s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	s.Conn.SetPongHandler(func(string) error {
		s.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("owner_id", s.OwnerID.String()).Msg("WebSocket read error")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == EventResync {
			h.sendSnapshot(s)
		}
	}
}

func (h *Handler) wsWriter(s *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.Send:
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			// Send ping for heartbeat
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
