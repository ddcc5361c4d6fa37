package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"

	"git.home.luguber.info/inful/webhookcatcher/internal/auth"
	derrors "git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.mchain)
	if origins := s.cfg.Server.CORSAllowedOrigins; len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Admin-Token"},
			ExposedHeaders: []string{"Content-Disposition", "X-Total-Count"},
			MaxAge:         300,
		}))
	}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/logs/view", http.StatusFound)
	})

	// Capture
	r.Post("/webhook", s.captureHandlers.HandleWebhook)
	r.Post("/test", s.captureHandlers.HandleTest)

	// Monitoring
	r.Get("/config", s.monitoringHandlers.HandleConfig)
	r.Get("/healthz", s.monitoringHandlers.HandleHealthCheck)
	if s.cfg.Monitoring.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.HTTPHandler(s.deps.Registry))
	}

	// Browsing
	r.Group(func(r chi.Router) {
		r.Use(auth.Require(s.passwordGate, s.errorAdapter, s.deps.Recorder))
		r.Use(compress)
		r.Get("/logs", s.browseHandlers.HandleLogs)
		r.Get("/logs/view", s.browseHandlers.HandleLogsView)
		r.Get("/export", s.browseHandlers.HandleExport)
		r.Get("/webhooks", s.browseHandlers.HandleWebhooks)
	})

	// Administration
	r.Group(func(r chi.Router) {
		r.Use(auth.Require(s.adminGate, s.errorAdapter, s.deps.Recorder))
		r.Post("/replay/{id}", s.adminHandlers.HandleReplay)
		r.Post("/clear", s.adminHandlers.HandleClear)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.errorAdapter.WriteErrorResponse(w, req, derrors.NotFoundError("endpoint not found").
			WithContext("path", req.URL.Path).
			Build())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"method not allowed","code":"validation"}`))
	})

	return r
}

// compress gzips responses for clients that accept it.
func compress(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
