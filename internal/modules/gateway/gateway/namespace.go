package gateway

import (
	"strings"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

func userRoom(userID string) string { return "user:" + userID }

func (h *Hub) registerNamespaces() {
	nsp := h.sio.Of(namespaceNotifications, nil)
	_ = nsp.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}

		token := normalizeToken(extractToken(client))
		userID, valid := "", false
		if token != "" && h.validate != nil {
			userID, valid = h.validate(token)
		}
		if !valid {
			_ = client.Emit("message", gatewayPayload{Type: eventAuthFailed, Data: "auth failed"})
			client.Disconnect(true)
			return
		}

		client.Join(socketio.Room(userRoom(userID)))
		h.track(userID, 1)
		_ = client.Emit("message", gatewayPayload{Type: eventConnect, Data: "WebSocket connected"})

		_ = client.On("disconnect", func(_ ...any) {
			h.track(userID, -1)
		})
	})
}

func extractToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	if token := firstValueFromMultiMap(handshake.Query, "token"); token != "" {
		return token
	}
	return firstValueFromMultiMap(handshake.Headers, "authorization")
}

func firstValueFromMultiMap(values map[string][]string, key string) string {
	for k, list := range values {
		if !strings.EqualFold(strings.TrimSpace(k), key) || len(list) == 0 {
			continue
		}
		if v := strings.TrimSpace(list[0]); v != "" {
			return v
		}
	}
	return ""
}

func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
