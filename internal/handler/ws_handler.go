package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"moodchat/internal/app/chat"
	"moodchat/internal/pkg/limiter"
	"moodchat/internal/pkg/logx"
)

// HandleWebSocket upgrades the request and hands the socket to hub. The
// socket starts unauthenticated; identity arrives in its first auth frame.
func HandleWebSocket(hub *chat.Hub, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			logx.Warn("websocket upgrade failed", "ip", logx.MaskIP(limiter.ClientIP(r)), "error", err.Error())
			return
		}

		hub.Serve(conn)
	}
}
