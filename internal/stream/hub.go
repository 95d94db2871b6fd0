package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans schedule events out to connected clients, keyed by user id.
// Delivery is best-effort and at-most-once: a full Send channel drops the
// event and a disconnected subscriber simply misses it. The Redis bridge
// carries events across instances; envelopes are tagged with the origin
// hub id so an instance never re-delivers its own publishes.
type Hub struct {
	id      string
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	UserID string
	Send   chan []byte
}

type envelope struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.UserID]; ok {
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	close(client.Send)
}

// Publish delivers the payload to every client of the named users. The
// caller decides who is interested; the hub never blocks on a slow client.
func (h *Hub) Publish(userIDs []string, payload []byte) {
	for _, userID := range userIDs {
		h.deliver(userID, payload)

		if h.redis != nil {
			wrapped, err := json.Marshal(envelope{Origin: h.id, Data: payload})
			if err != nil {
				continue
			}
			if err := h.redis.Publish(context.Background(), redisChannel(userID), wrapped).Err(); err != nil {
				log.Printf("redis publish error: %v", err)
			}
		}
	}
}

// deliver holds the read lock across the sends so Unregister can never
// close a channel mid-send; the selects are non-blocking either way.
func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "schedule:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			continue
		}
		if env.Origin == h.id {
			continue
		}
		h.deliver(userIDFromChannel(msg.Channel), env.Data)
	}
}

func redisChannel(userID string) string {
	return "schedule:" + userID + ":events"
}

func userIDFromChannel(ch string) string {
	// schedule:{user}:events
	trimmed := strings.TrimPrefix(ch, "schedule:")
	trimmed = strings.TrimSuffix(trimmed, ":events")
	if trimmed == ch || trimmed == "" {
		return ""
	}
	return trimmed
}
