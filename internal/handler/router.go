package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/haven/backend/internal/handler/chat"
	"github.com/zhouzirui/haven/backend/internal/handler/identity"
	"github.com/zhouzirui/haven/backend/internal/handler/stream"
	"github.com/zhouzirui/haven/backend/internal/handler/voice"
	middlewarePkg "github.com/zhouzirui/haven/backend/internal/middleware"
	"github.com/zhouzirui/haven/backend/internal/service/conversation"
	"github.com/zhouzirui/haven/backend/pkg/utils"
)

// RouterConfig 描述 HTTP 层的可调项。
type RouterConfig struct {
	AllowedOrigins []string
	DefaultUserID  string
	MaxVoiceBytes  int64
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc *conversation.Service, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))

	identities := identity.Resolver{DefaultUserID: cfg.DefaultUserID}

	chatHandler := chat.New(svc, svc.Store(), identities)
	streamHandler := stream.New(svc, identities)
	voiceHandler := voice.New(svc, identities, cfg.MaxVoiceBytes)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"sessions": svc.Store().Len(),
			})
		})

		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		voiceHandler.RegisterRoutes(api)
	})

	return r
}
