package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelchat-backend/internal/handlers"
	"modelchat-backend/internal/metrics"
	"modelchat-backend/internal/middleware"
	"modelchat-backend/internal/websocket"
)

type Deps struct {
	JWTAuth     *middleware.JWTAuth
	Chat        *handlers.ChatHandler
	Hub         *websocket.Hub
	APILimiter  *middleware.RateLimiter
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
	FrontendURL string
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(d.Logger, d.Metrics))
	r.Use(middleware.CORS(d.FrontendURL))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// The socket authenticates with ?token= itself.
		if d.Hub != nil {
			r.Get("/ws", d.Hub.HandleWebSocket)
		}

		r.Group(func(r chi.Router) {
			r.Use(d.JWTAuth.Middleware)
			if d.APILimiter != nil {
				r.Use(d.APILimiter.Middleware)
			}

			r.Get("/models", d.Chat.ListModels)
			r.Get("/chat/history", d.Chat.History)
			r.Post("/chat/send", d.Chat.Send)
		})
	})

	return r
}
