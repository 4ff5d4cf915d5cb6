package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler builds the chi mux with all routes wired.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", g.handleHealth())
	if g.deps.Metrics != nil && g.config.PublicMetrics {
		r.Handle("/metrics", g.deps.Metrics)
	}
	if g.deps.Websocket != nil {
		r.Handle("/ws", g.deps.Websocket)
	}

	// Admin endpoints are not mounted at all without credentials.
	if !g.config.Auth.IsConfigured() {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(g.config.Auth, g.limiter, g.logger))
		if g.deps.Metrics != nil && !g.config.PublicMetrics {
			r.Handle("/metrics", g.deps.Metrics)
		}
		r.Get("/status", g.handleStatus())
		r.Route("/api", func(r chi.Router) {
			r.Get("/config", g.handleGetConfig())
			r.Get("/modules", g.handleModules())
			r.Post("/jobs/{name}/run", g.handleRunJob())

			r.Route("/prompts", func(r chi.Router) {
				r.Get("/", g.handleGetPrompts())
				r.Put("/system", g.handleSetSystemPrompt())
				r.Put("/personality", g.handleSetPersonality())
			})
			r.Route("/scopes/{scope}", func(r chi.Router) {
				r.Get("/prompts", g.handleGetPrompts())
				r.Put("/personality", g.handleSetScopePersonality())
				r.Delete("/personality", g.handleClearScopePersonality())
				r.Get("/memory", g.handleGetMemory())
				r.Delete("/memory", g.handleClearMemory())
				r.Get("/memory/info", g.handleMemoryInfo())
			})
		})
	})
	return r
}
