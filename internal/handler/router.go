package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eduresolve/support-platform/internal/auth"
	"github.com/eduresolve/support-platform/internal/middleware"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/service"
	"github.com/eduresolve/support-platform/pkg/logger"
)

// RouterConfig carries everything the HTTP API needs.
type RouterConfig struct {
	Conversations *service.ConversationService
	Users         *service.UserService
	Analytics     *service.AnalyticsService
	Verifier      auth.Verifier
	Profiles      middleware.ProfileLookup
	Health        *HealthHandler
	Logger        *logger.Logger

	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the chi router for the API server.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	conversations := NewConversationHandler(cfg.Conversations, log)
	messages := NewMessageHandler(cfg.Conversations, log)
	students := NewStudentHandler(cfg.Conversations, log)
	authHandler := NewAuthHandler(cfg.Users, log)
	analytics := NewAnalyticsHandler(cfg.Analytics, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Health)
		r.Get("/ready", cfg.Health.Ready)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(1 << 20))
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(middleware.Auth(cfg.Verifier, cfg.Profiles)).Get("/me", authHandler.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Verifier, cfg.Profiles))
			if cfg.RateLimitRequests > 0 {
				r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			}

			r.Route("/conversations", func(r chi.Router) {
				r.With(middleware.RequireRole(model.RoleCustomer)).Post("/", conversations.Create)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(model.RoleSupport))
					r.Get("/", conversations.List)

					r.Route("/{id}", func(r chi.Router) {
						r.Use(middleware.ConversationID)
						r.Get("/", conversations.Get)
						r.Post("/messages", messages.Reply)
						r.Post("/reply", messages.Reply)
						r.Get("/suggestions", conversations.Suggestions)
						r.Put("/assign", conversations.Assign)
						r.Put("/status", conversations.UpdateStatus)
						r.Get("/events", conversations.Events)
					})
				})
			})

			r.Route("/student", func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleCustomer))
				r.Post("/complaints", students.SubmitComplaint)
				r.Get("/conversations", students.List)
				r.With(middleware.ConversationID).Get("/conversations/{id}", students.Get)
				r.With(middleware.ConversationID).Post("/conversations/{id}/reply", messages.StudentReply)
			})

			r.With(middleware.RequireRole(model.RoleSupport)).Get("/analytics/overview", analytics.Overview)
		})
	})

	return r
}
