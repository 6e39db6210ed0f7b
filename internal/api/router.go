package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/orderlens/order-analyzer/internal/logger"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(apiHandler.log))
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Served both at the root and under /api, where the web client calls them.
	apiHandler.routes(r)
	r.Route("/api", apiHandler.routes)

	return r
}

func (h *APIHandler) routes(r chi.Router) {
	r.Route("/chat-sessions", func(r chi.Router) {
		r.Get("/", h.ListSessionsHandler)
		r.Post("/", h.SaveSessionHandler)
		r.Delete("/", h.ClearSessionsHandler)
		r.Get("/{sessionID}", h.GetSessionHandler)
		r.Put("/{sessionID}", h.UpdateSessionHandler)
		r.Delete("/{sessionID}", h.DeleteSessionHandler)
	})

	r.Post("/chat", h.ChatHandler)

	r.Get("/checklist/{checklistID}", h.GetChecklistHandler)
	r.Get("/checklist/{checklistID}/download", h.DownloadChecklistHandler)
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
