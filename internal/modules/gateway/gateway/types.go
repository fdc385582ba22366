package gateway

import (
	"sync"
	"sync/atomic"

	pkgredis "github.com/popolling/server/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	namespaceNotifications = "/notifications"
	redisChanNotify        = "popolling:gateway:notify"

	EventNotification = "notification"
	eventConnect      = "GATEWAY_CONNECT"
	eventAuthFailed   = "AUTH_FAILED"
)

// Message is the envelope used for Redis fan-out.
type Message struct {
	UserID  string      `json:"user_id"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// TokenValidator resolves an access token to a user id.
type TokenValidator func(token string) (userID string, ok bool)

// Hub pushes per-user events to connected socket.io clients. With Redis
// configured every instance receives every push and emits to its own sockets.
type Hub struct {
	mu      sync.RWMutex
	online  map[string]int
	sockets int

	local     chan Message
	delivered atomic.Int64

	rc       *pkgredis.Client
	logger   *zap.Logger
	sio      *socketio.Server
	validate TokenValidator
}
