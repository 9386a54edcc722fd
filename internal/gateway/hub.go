package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/runbattle/internal/metrics"
)

const clientSendBuffer = 64

// Hub fans outbound events to every client subscribed to a session.
// When a Redis client is provided, broadcasts are mirrored over a
// pub/sub channel so that clients connected to other instances receive
// them too.
type Hub struct {
	redis      *redis.Client
	instanceID string
	logger     *logrus.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}

	cancel context.CancelFunc
}

// Client is a single subscriber. Payloads that cannot be buffered are
// dropped rather than blocking the hub.
type Client struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Send      chan []byte

	closeOnce sync.Once
}

// fanoutEnvelope wraps payloads on the Redis channel so an instance can
// skip messages it published itself.
type fanoutEnvelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(redisClient *redis.Client, logger *logrus.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		redis:      redisClient,
		instanceID: uuid.New().String(),
		logger:     logger,
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		cancel:     cancel,
	}

	if redisClient != nil {
		go h.subscribeLoop(ctx)
	}
	return h
}

// Register subscribes a new client to a session's broadcasts.
func (h *Hub) Register(sessionID, userID uuid.UUID) *Client {
	client := &Client{
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan []byte, clientSendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*Client]struct{})
	}
	h.clients[sessionID][client] = struct{}{}
	metrics.ConnectedClients.Inc()
	return client
}

// Unregister removes a client and closes its send channel. Safe to call
// more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionClients, ok := h.clients[client.SessionID]
	if ok {
		if _, present := sessionClients[client]; present {
			delete(sessionClients, client)
			metrics.ConnectedClients.Dec()
			if len(sessionClients) == 0 {
				delete(h.clients, client.SessionID)
			}
		}
	}
	client.closeOnce.Do(func() { close(client.Send) })
}

// Broadcast delivers a payload to every local client of the session and
// mirrors it to Redis for other instances.
func (h *Hub) Broadcast(sessionID uuid.UUID, payload []byte) {
	h.deliverLocal(sessionID, payload)

	if h.redis == nil {
		return
	}

	wrapped, err := json.Marshal(fanoutEnvelope{Origin: h.instanceID, Payload: payload})
	if err != nil {
		h.logger.WithError(err).Error("Failed to wrap broadcast for fanout")
		return
	}
	if err := h.redis.Publish(context.Background(), fanoutChannel(sessionID), wrapped).Err(); err != nil {
		h.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Failed to publish broadcast to Redis")
	}
}

func (h *Hub) deliverLocal(sessionID uuid.UUID, payload []byte) {
	// Sends stay under the read lock: Unregister closes Send under the
	// write lock, so a client present in the map always has an open channel.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
			h.logger.WithFields(logrus.Fields{
				"session_id": sessionID,
				"user_id":    client.UserID,
			}).Warn("Client send buffer full, dropping payload")
		}
	}
}

func (h *Hub) subscribeLoop(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, fanoutPattern)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var envelope fanoutEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				h.logger.WithError(err).Warn("Discarding malformed fanout message")
				continue
			}
			if envelope.Origin == h.instanceID {
				continue
			}
			sessionID, err := sessionIDFromChannel(msg.Channel)
			if err != nil {
				continue
			}
			h.deliverLocal(sessionID, envelope.Payload)
		}
	}
}

// SessionClientCount reports how many local clients are subscribed to a
// session.
func (h *Hub) SessionClientCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Close stops the Redis subscription loop.
func (h *Hub) Close() {
	h.cancel()
}

const fanoutPattern = "runbattle:session:*:events"

func fanoutChannel(sessionID uuid.UUID) string {
	return "runbattle:session:" + sessionID.String() + ":events"
}

func sessionIDFromChannel(channel string) (uuid.UUID, error) {
	const prefix = "runbattle:session:"
	const suffix = ":events"
	if len(channel) <= len(prefix)+len(suffix) {
		return uuid.Nil, fmt.Errorf("unexpected fanout channel %q", channel)
	}
	return uuid.Parse(channel[len(prefix) : len(channel)-len(suffix)])
}
