package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/runbattle/internal/metrics"
	"github.com/yourusername/runbattle/internal/models"
	"github.com/yourusername/runbattle/internal/race"
)

// HandlerConfig tunes per-connection behaviour.
type HandlerConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	PingInterval      time.Duration
	MaxMessageSize    int64
	MessagesPerSecond float64
	MessageBurst      int
}

// DefaultHandlerConfig matches a device reporting one GPS fix per second
// with room for short catch-up bursts after signal loss.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      25 * time.Second,
		MaxMessageSize:    4096,
		MessagesPerSecond: 2,
		MessageBurst:      10,
	}
}

// Handler upgrades session WebSocket connections and bridges them to the
// race engine.
type Handler struct {
	manager  *race.Manager
	hub      *Hub
	config   HandlerConfig
	upgrader websocket.Upgrader
	validate *validator.Validate
	clock    clockwork.Clock
	logger   *logrus.Logger
}

func NewHandler(manager *race.Manager, hub *Hub, cfg HandlerConfig, clock clockwork.Clock, logger *logrus.Logger) *Handler {
	return &Handler{
		manager: manager,
		hub:     hub,
		config:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		validate: validator.New(),
		clock:    clock,
		logger:   logger,
	}
}

// Register mounts the WebSocket route on a mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/sessions/{session_id}", h.serveSession)
}

func (h *Handler) serveSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("session_id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	if _, ok := h.manager.Get(sessionID); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := h.hub.Register(sessionID, userID)

	h.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
	}).Info("WebSocket connection established")

	go h.writePump(conn, client)
	go h.readPump(conn, client)
}

// writePump drains the client's send channel onto the socket and keeps
// the connection alive with pings.
func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump parses inbound messages, applies the per-connection rate
// limit, and forwards valid events to the session actor.
func (h *Handler) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	limiter := rate.NewLimiter(rate.Limit(h.config.MessagesPerSecond), h.config.MessageBurst)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.WithFields(logrus.Fields{
					"session_id": client.SessionID,
					"user_id":    client.UserID,
					"error":      err.Error(),
				}).Warn("Unexpected WebSocket close")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))

		if !limiter.Allow() {
			metrics.RateLimitedMessagesTotal.Inc()
			h.sendError(client, "rate_limited", "too many messages")
			continue
		}

		ev, err := h.translate(client, raw)
		if err != nil {
			h.sendError(client, "invalid_message", err.Error())
			continue
		}

		if err := h.manager.Dispatch(client.SessionID, ev); err != nil {
			switch {
			case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrSessionTerminal):
				// Session ended while the client was still talking.
				return
			case errors.Is(err, models.ErrQueueFull):
				h.sendError(client, "overloaded", "event dropped, retry")
			default:
				h.logger.WithError(err).Error("Failed to dispatch event")
			}
		}
	}
}

// translate decodes and validates an inbound frame into an engine event.
func (h *Handler) translate(client *Client, raw []byte) (race.Event, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return race.Event{}, err
	}
	if err := h.validate.Struct(&msg); err != nil {
		return race.Event{}, err
	}

	ev := race.Event{
		ParticipantID: client.UserID,
		ReceivedAt:    h.clock.Now(),
	}

	switch msg.Type {
	case InboundPosition:
		var p PositionPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return race.Event{}, err
		}
		if err := h.validate.Struct(&p); err != nil {
			return race.Event{}, err
		}
		ev.Type = race.EventPosition
		ev.Sample = models.PositionSample{
			Lat:        p.Lat,
			Lng:        p.Lng,
			AccuracyM:  p.AccuracyM,
			SpeedMps:   p.SpeedMps,
			ClientTime: time.UnixMilli(p.ClientTime).UTC(),
		}
	case InboundFinishClaim:
		var p FinishClaimPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return race.Event{}, err
		}
		if err := h.validate.Struct(&p); err != nil {
			return race.Event{}, err
		}
		ev.Type = race.EventFinishClaim
		ev.Claim = &race.FinishClaim{
			TotalDistanceM: p.TotalDistanceM,
			TotalTimeMs:    p.TotalTimeMs,
			AvgPaceMinKm:   p.AvgPaceMinKm,
		}
	case InboundQuit:
		ev.Type = race.EventQuit
	case InboundReady:
		ev.Type = race.EventReady
	default:
		return race.Event{}, fmt.Errorf("unsupported message type %q", msg.Type)
	}

	return ev, nil
}

func (h *Handler) sendError(client *Client, code, message string) {
	data, err := json.Marshal(ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	envelope := NewOutboundEvent(client.SessionID, OutboundError, data, h.clock.Now())
	raw, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	select {
	case client.Send <- raw:
	default:
	}
}
