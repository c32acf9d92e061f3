package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/royale-backend/internal/hub"
	"github.com/DoyleJ11/royale-backend/internal/ws"
)

func SetupRoutes(c hub.Controller, history History, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger.With(zap.String("component", "http"))))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/legends", Legends)
	r.Get("/titles", Titles)
	r.Get("/players/{id}/stats", PlayerStats(history))
	r.Get("/ws", ws.Handler(c, logger))

	r.Route("/matches", func(r chi.Router) {
		r.Post("/", CreateMatch(c))
		r.Get("/", ListMatches(c))
		r.Get("/history", MatchHistory(history))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", GetMatch(c))
			r.Get("/ring", RingStatus(c))
			r.Post("/join", Join(c))
			r.Post("/leave", Leave(c))
			r.Post("/start", Start(c))
			r.Post("/finish", Finish(c))
			r.Post("/eliminate", Eliminate(c))
			r.Post("/revive", Revive(c))
		})
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
