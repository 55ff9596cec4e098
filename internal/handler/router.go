package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"starledger/internal/database"
	"starledger/internal/metrics"
	"starledger/internal/mw"
	"starledger/internal/service"
)

type Deps struct {
	Store       *database.Store
	Auth        *service.AuthService
	Users       *service.UserService
	Orders      *service.OrderService
	Coordinator *service.Coordinator
	JWTSecret   string
	// LoginLimiter throttles login attempts per client address.
	LoginLimiter *mw.RateLimiter
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", HealthHandler(d.Store))
	r.Handle("/metrics", metrics.Handler())

	if !d.Auth.Enabled() {
		return r
	}
	r.Route("/api/admin", func(r chi.Router) {
		r.With(d.LoginLimiter.Handler).Post("/login", LoginHandler(d.Auth))

		r.Group(func(r chi.Router) {
			r.Use(mw.AuthMiddleware(d.JWTSecret))

			r.Get("/orders", ListOrdersHandler(d.Orders))
			r.Post("/orders/{orderID}/decision", DecideHandler(d.Coordinator))
			r.Get("/users/{userID}", GetUserHandler(d.Users, d.Orders))
			r.Post("/users/{userID}/adjust", AdjustHandler(d.Coordinator))
		})
	})

	return r
}
