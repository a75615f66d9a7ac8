package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/verid/facegate/internal/web/handlers"
	"github.com/verid/facegate/internal/web/middleware"
)

func (s *Server) setupRoutes(deps Deps) {
	healthHandler := handlers.NewHealthHandler(deps.Inference, deps.Templates)
	facesHandler := handlers.NewFacesHandler(deps.Pipeline, deps.Templates)
	detectHandler := handlers.NewDetectHandler(deps.Detector)
	livenessHandler := handlers.NewLivenessHandler(deps.Detector, deps.Scorer, deps.Gate)
	checkinHandler := handlers.NewCheckinHandler(deps.Pipeline)
	attemptsHandler := handlers.NewAttemptsHandler(deps.Ledger)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", healthHandler.Check)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(s.config.Server.APIKey))

		// Templates
		r.Post("/faces", facesHandler.Enroll)
		r.Get("/faces", facesHandler.Search)
		r.Get("/faces/{userID}", facesHandler.Get)
		r.Put("/faces/{userID}", facesHandler.Update)
		r.Delete("/faces/{userID}", facesHandler.Delete)

		// Detection and check-in
		r.Post("/detect", detectHandler.Detect)
		r.Post("/liveness", livenessHandler.Score)
		r.Post("/checkin", checkinHandler.CheckIn)

		// Audit
		r.Get("/attempts", attemptsHandler.List)
	})
}
