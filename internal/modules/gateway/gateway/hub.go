package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	pkgredis "github.com/popolling/server/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

func NewHub(rc *pkgredis.Client, logger *zap.Logger, validate TokenValidator) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		online:   make(map[string]int),
		local:    make(chan Message, 256),
		rc:       rc,
		logger:   logger,
		sio:      socketio.NewServer(nil, nil),
		validate: validate,
	}
	h.registerNamespaces()
	return h
}

// Run delivers pushes until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rc != nil {
		go h.subscribeRedis(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return
		case msg := <-h.local:
			h.deliver(msg)
		}
	}
}

// Push sends event to every socket userID has open. It never blocks the
// caller; undeliverable pushes are logged and dropped.
func (h *Hub) Push(userID, event string, payload interface{}) {
	msg := Message{UserID: userID, Event: event, Payload: payload}
	if h.rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.rc.PublishJSON(ctx, redisChanNotify, msg); err != nil {
			h.logger.Warn("gateway publish failed", zap.String("user_id", userID), zap.Error(err))
		}
		return
	}
	select {
	case h.local <- msg:
	default:
		h.logger.Warn("gateway queue full, dropping push", zap.String("user_id", userID))
	}
}

func (h *Hub) deliver(msg Message) {
	if msg.UserID == "" {
		return
	}
	h.sio.Of(namespaceNotifications, nil).
		To(socketio.Room(userRoom(msg.UserID))).
		Emit(msg.Event, msg.Payload)
	h.delivered.Add(1)
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rc.Subscribe(ctx, redisChanNotify)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				h.logger.Warn("gateway message malformed", zap.Error(err))
				continue
			}
			h.deliver(msg)
		}
	}
}

func (h *Hub) track(userID string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sockets += delta
	h.online[userID] += delta
	if h.online[userID] <= 0 {
		delete(h.online, userID)
	}
}

// Stats reports connected sockets and distinct users on this instance.
func (h *Hub) Stats() (sockets, users int, delivered int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sockets, len(h.online), h.delivered.Load()
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}
