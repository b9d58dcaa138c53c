package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/circleboard/internal/logging"
)

const (
	sendBufferSize = 16
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// Message is one pub/sub delivery.
type Message struct {
	Channel string
	Payload string
}

// SubscribeFunc opens the pattern subscription the hub reads from. The
// returned close func releases it.
type SubscribeFunc func(ctx context.Context) (<-chan Message, func() error, error)

// RedisSubscriber subscribes to every user's notification channel.
func RedisSubscriber(client *redis.Client) SubscribeFunc {
	return func(ctx context.Context) (<-chan Message, func() error, error) {
		pubsub := client.PSubscribe(ctx, channelPrefix+"*")
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return nil, nil, err
		}

		out := make(chan Message)
		go func() {
			defer close(out)
			for msg := range pubsub.Channel() {
				select {
				case out <- Message{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out, pubsub.Close, nil
	}
}

type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks the sockets connected to this instance, keyed by user.
type Hub struct {
	subscribe SubscribeFunc
	logger    *logging.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
}

func NewHub(subscribe SubscribeFunc, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default
	}
	return &Hub{
		subscribe: subscribe,
		logger:    logger,
		clients:   make(map[uuid.UUID]map[*client]struct{}),
	}
}

// Run forwards subscribed notifications to local clients until ctx ends.
func (h *Hub) Run(ctx context.Context) error {
	messages, closeSub, err := h.subscribe(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeSub() }()

	h.logger.Info("Notification hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case msg, ok := <-messages:
			if !ok {
				h.closeAll()
				return nil
			}
			h.Dispatch(msg.Channel, msg.Payload)
		}
	}
}

// Dispatch hands payload to every socket of the channel's user. A client whose
// buffer is full misses the event.
func (h *Hub) Dispatch(channel, payload string) {
	userID, ok := userFromChannel(channel)
	if !ok {
		h.logger.Warn("Ignoring notification on unknown channel", map[string]interface{}{"channel": channel})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- []byte(payload):
		default:
			h.logger.Warn("Dropping notification for slow client", map[string]interface{}{
				"user_id": userID.String(),
			})
		}
	}
}

// Attach registers an upgraded connection for userID and starts its pumps.
// The hub owns the connection from here on.
func (h *Hub) Attach(userID uuid.UUID, conn *websocket.Conn) {
	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// Connected reports how many sockets userID has open on this instance.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, userID)
	}
}

// readPump discards client frames; it exists to notice closes and pongs.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.WithError(err).Debug("Closing socket after failed write", map[string]interface{}{
					"user_id": c.userID.String(),
				})
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
