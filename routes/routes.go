package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/league-system/handlers"
	"github.com/Dosada05/league-system/middleware"
	"github.com/Dosada05/league-system/resilience"
)

func SetupRoutes(
	router *chi.Mux,
	seasonHandler *handlers.SeasonHandler,
	matchHandler *handlers.MatchHandler,
	healthHandler *handlers.HealthHandler,
	webSocketHandler *handlers.WebSocketHandler,
	registry *resilience.Registry,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/seasons", func(r chi.Router) {
		r.Post("/", seasonHandler.Create)
		r.Get("/{seasonID}", seasonHandler.Get)
		r.Get("/{seasonID}/standings", seasonHandler.Standings)
		r.Post("/{seasonID}/teams", seasonHandler.RegisterTeam)
		r.Patch("/{seasonID}/status", seasonHandler.Transition)

		// Дорогие операции дополнительно лимитируются по клиентскому IP.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(registry, resilience.OpGenerateFixtures))
			r.Post("/{seasonID}/start", seasonHandler.Start)
			r.Post("/{seasonID}/fixtures", seasonHandler.GenerateFixtures)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(registry, resilience.OpScheduleMatches))
			r.Post("/{seasonID}/schedule", seasonHandler.ScheduleMatches)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(registry, resilience.OpRecomputeStandings))
			r.Post("/{seasonID}/standings/recompute", seasonHandler.RecomputeStandings)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Post("/{matchID}/result", matchHandler.SubmitResult)
		r.Post("/{matchID}/confirm", matchHandler.ConfirmResult)
		r.Post("/{matchID}/walkover", matchHandler.RecordWalkover)
		r.Post("/{matchID}/reschedule", matchHandler.Reschedule)
		r.Post("/bulk-reschedule", matchHandler.BulkReschedule)
	})

	router.Get("/health", healthHandler.Evaluate)
	router.Get("/ws/seasons/{seasonID}", webSocketHandler.ServeWs)
}
