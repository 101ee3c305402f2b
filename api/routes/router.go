package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wishwall/wishwall-backend/api/controllers"
	"github.com/wishwall/wishwall-backend/api/middleware"
	"github.com/wishwall/wishwall-backend/internal/admin"
	"github.com/wishwall/wishwall-backend/internal/auth"
	"github.com/wishwall/wishwall-backend/internal/feed"
	"github.com/wishwall/wishwall-backend/internal/likes"
	"github.com/wishwall/wishwall-backend/internal/profiles"
	"github.com/wishwall/wishwall-backend/internal/wishes"
	"github.com/wishwall/wishwall-backend/pkg/auth/session"
	"github.com/wishwall/wishwall-backend/pkg/config"
	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/metrics"
	"github.com/wishwall/wishwall-backend/pkg/redis"
)

// Dependencies is everything the HTTP surface is built from. Redis is required.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics
	Limiter  *middleware.ClientLimiter

	Auth     auth.Service
	Register auth.RegisterService
	Profiles profiles.Service
	Wishes   wishes.Service
	Likes    likes.Service
	Admin    admin.Service
	Feed     *feed.PublicFeed
}

func NewRouter(d Dependencies) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := middleware.Auth(cfg.JWT, d.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, d.Sessions, logg)
	idempotency := middleware.Idempotency(d.Redis, logg)
	rateLimit := middleware.RateLimit(d.Limiter, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(rateLimit)
			r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), d.Redis, logg)).
				Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), d.Redis, logg), idempotency).
				Post("/register", controllers.AuthRegister(d.Register, logg))
			r.With(requireAuth).Post("/logout", controllers.AuthLogout(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimit)
			r.Get("/wishes/public", controllers.ListPublicWishes(d.Wishes, logg))
			r.With(optionalAuth, idempotency).Post("/wishes/{wishId}/like", controllers.ToggleLike(d.Likes, logg))
		})
		if d.Feed != nil {
			r.Get("/wishes/public/stream", controllers.PublicWishStream(d.Feed, cfg.Realtime, cfg.CORS.AllowedOrigins, logg))
		}

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, rateLimit, idempotency)
			r.Get("/session", controllers.Session(d.Auth, logg))
			r.Get("/profile", controllers.GetProfile(d.Profiles, logg))
			r.Put("/profile", controllers.UpdateProfile(d.Profiles, logg))
			r.Get("/likes", controllers.LikedWishIDs(d.Likes, logg))
			r.Get("/wishes", controllers.ListMyWishes(d.Wishes, logg))
			r.Post("/wishes", controllers.CreateWish(d.Wishes, logg))
			r.Get("/wishes/{wishId}", controllers.GetWish(d.Wishes, logg))
			r.Put("/wishes/{wishId}", controllers.UpdateWish(d.Wishes, logg))
			r.Delete("/wishes/{wishId}", controllers.DeleteWish(d.Wishes, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth, middleware.RequireAdmin(logg), rateLimit)
		r.Get("/stats", controllers.AdminStats(d.Admin, logg))
		r.Get("/wishes", controllers.ListAllWishes(d.Wishes, logg))
		r.Delete("/wishes/{wishId}", controllers.DeleteWish(d.Wishes, logg))
	})

	return r
}
