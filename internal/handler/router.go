package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/postscript/backend/internal/handler/flows"
	"github.com/zhouzirui/postscript/backend/internal/handler/persona"
	"github.com/zhouzirui/postscript/backend/internal/handler/session"
	middlewarePkg "github.com/zhouzirui/postscript/backend/internal/middleware"
	"github.com/zhouzirui/postscript/backend/internal/model/plan"
	sessionService "github.com/zhouzirui/postscript/backend/internal/service/session"
	"github.com/zhouzirui/postscript/backend/pkg/utils"
)

// Services 路由依赖的服务，除 Sessions 外均可为 nil。
type Services struct {
	Sessions   *sessionService.Manager
	Tone       sessionService.ToneAdapter
	Speech     sessionService.SpeechSynthesizer
	VoiceClone flows.VoiceCloner
}

// NewRouter wires HTTP routes to core services.
func NewRouter(allowedOrigins []string, svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins...))

	personaHandler := persona.New()
	sessionHandler := session.New(svc.Sessions)
	flowHandler := flows.New(svc.Tone, svc.Speech, svc.VoiceClone)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"sessions": svc.Sessions.Len(),
			})
		})

		api.Get("/plans", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, plan.Catalog())
		})

		personaHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		flowHandler.RegisterRoutes(api)
	})

	return r
}
