package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coffeeworth/coffeeworth-backend/api/controllers"
	"github.com/coffeeworth/coffeeworth-backend/api/middleware"
	"github.com/coffeeworth/coffeeworth-backend/internal/creators"
	"github.com/coffeeworth/coffeeworth-backend/internal/payments"
	"github.com/coffeeworth/coffeeworth-backend/internal/payouts"
	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	"github.com/coffeeworth/coffeeworth-backend/pkg/config"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
	"github.com/coffeeworth/coffeeworth-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	supportService supports.Service,
	paymentService payments.Service,
	creatorService creators.Service,
	payoutService payouts.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	supportPolicy := middleware.SupportCreatePolicy(cfg.RateLimit)
	confirmPolicy := middleware.PaymentConfirmPolicy(cfg.RateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Supporter-facing surface. No auth; supporters are anonymous visitors.
		r.Get("/creators/{username}", controllers.CreatorProfile(creatorService, logg))

		r.Route("/supports", func(r chi.Router) {
			r.With(
				middleware.RateLimit(redisClient, logg, supportPolicy),
				middleware.Idempotency(redisClient, logg, "supports", cfg.Idempotency.SupportTTL),
			).Post("/", controllers.CreateSupport(supportService, logg))
			r.Get("/{id}", controllers.GetSupport(supportService, logg))
		})

		r.With(
			middleware.RateLimit(redisClient, logg, confirmPolicy),
			middleware.Idempotency(redisClient, logg, "payments_confirm", cfg.Idempotency.ConfirmTTL),
		).Post("/payments/confirm", controllers.ConfirmPayment(paymentService, logg))

		// Creator dashboard. Bearer token required.
		r.Route("/me", func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWT, logg))

			r.Get("/ping", controllers.PrivatePing())
			r.Get("/", controllers.Me(creatorService, logg))
			r.Patch("/", controllers.UpdateMe(creatorService, logg))
			r.Get("/stats", controllers.MyStats(supportService, logg))
			r.Get("/supports", controllers.MySupports(supportService, logg))

			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", controllers.MyBalance(payoutService, logg))
				r.With(
					middleware.Idempotency(redisClient, logg, "payouts", cfg.Idempotency.PayoutTTL),
				).Post("/", controllers.RequestPayout(payoutService, logg))
			})
		})
	})

	return r
}
