package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/chat"
	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/images"
	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/persona"
	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/speech"
	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/stream"
	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/tools"
	"github.com/cowalsky-lab/cowalsky/backend/internal/handler/ws"
	middlewarePkg "github.com/cowalsky-lab/cowalsky/backend/internal/middleware"
	personaModel "github.com/cowalsky-lab/cowalsky/backend/internal/model/persona"
	"github.com/cowalsky-lab/cowalsky/backend/internal/service/bot"
	speechService "github.com/cowalsky-lab/cowalsky/backend/internal/service/speech"
	"github.com/cowalsky-lab/cowalsky/backend/pkg/utils"
)

// HealthChecker 由需要外部连接的会话存储实现
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps 路由依赖的服务
type Deps struct {
	Personas personaModel.Store
	Store    HealthChecker
	Bot      *bot.Service
	Speech   *speechService.Service
	Locator  tools.Locator
	Metrics  http.Handler
	Logger   zerolog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middlewarePkg.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middlewarePkg.CORS)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", healthHandler(deps))

		persona.New(deps.Personas).RegisterRoutes(api)
		chat.New(deps.Bot).RegisterRoutes(api)
		stream.New(deps.Bot).RegisterRoutes(api)
		images.New(deps.Bot).RegisterRoutes(api)
		tools.New(deps.Bot, deps.Locator).RegisterRoutes(api)

		speechSvc := deps.Speech
		if speechSvc == nil {
			speechSvc = speechService.NewService(nil)
		}
		speech.New(speechSvc, deps.Bot).RegisterRoutes(api)
		ws.New(deps.Bot, speechSvc).RegisterRoutes(api)
	})

	return r
}

// healthHandler 汇总各条回退链上已配置的服务商
func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers := deps.Bot.ProviderNames()
		if deps.Speech != nil {
			providers["speech"] = deps.Speech.Providers()
		}

		status := "ok"
		if len(providers["chat"]) == 0 {
			status = "degraded"
		}
		body := map[string]any{
			"status":    status,
			"providers": providers,
			"geo":       deps.Locator != nil,
		}
		if deps.Store != nil {
			body["store"] = "ok"
			if err := deps.Store.HealthCheck(r.Context()); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("session store unreachable")
				body["status"] = "degraded"
				body["store"] = "unreachable"
			}
		}
		utils.RespondJSON(w, http.StatusOK, body)
	}
}
