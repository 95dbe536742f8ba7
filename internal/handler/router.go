/*
Package handler wires the HTTP surface of the chat server: the WebSocket
endpoint, the REST history and user endpoints, and the file endpoints for
voice and file messages.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"moodchat/internal/pkg/auth/jwt"
	"moodchat/internal/pkg/limiter"
	"moodchat/internal/pkg/logx"
	"moodchat/internal/pkg/resp"
)

// Router builds the chi router over deps.
func Router(deps *AppDeps) http.Handler {
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(deps.Config.WSRate), deps.Config.WSBurst)
	historyLimiter := limiter.NewIPRateLimiter(rate.Limit(deps.Config.HistoryRate), deps.Config.HistoryBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{}, len(deps.Config.AllowedOrigins))
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			// Non-browser clients send no Origin.
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("websocket rejected, origin not allowed", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":  "ok",
			"service": "moodchat",
			"hub":     deps.Hub.Stats(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))
		api.Use(jwt.RequireIdentity)

		api.Get("/auth/user", HandleGetCurrentUser(deps))

		api.With(historyLimiter.Middleware).Get("/chat/messages", HandleListMessages(deps))

		api.Route("/chat/files", func(files chi.Router) {
			files.Post("/", HandleUploadFile(deps))
			files.Post("/presign-upload", HandlePresignUpload(deps))
			files.Get("/presign-download", HandlePresignDownload(deps))
		})
	})

	r.With(wsLimiter.Middleware).Get("/ws", HandleWebSocket(deps.Hub, wsUpgrader))

	return r
}
