package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wishwall/wishwall-backend/api/middleware"
	"github.com/wishwall/wishwall-backend/api/routes"
	"github.com/wishwall/wishwall-backend/internal/admin"
	"github.com/wishwall/wishwall-backend/internal/auth"
	"github.com/wishwall/wishwall-backend/internal/feed"
	"github.com/wishwall/wishwall-backend/internal/likes"
	"github.com/wishwall/wishwall-backend/internal/profiles"
	"github.com/wishwall/wishwall-backend/internal/users"
	"github.com/wishwall/wishwall-backend/internal/wishes"
	"github.com/wishwall/wishwall-backend/pkg/auth/session"
	"github.com/wishwall/wishwall-backend/pkg/config"
	"github.com/wishwall/wishwall-backend/pkg/db"
	"github.com/wishwall/wishwall-backend/pkg/logger"
	"github.com/wishwall/wishwall-backend/pkg/metrics"
	"github.com/wishwall/wishwall-backend/pkg/migrate"
	"github.com/wishwall/wishwall-backend/pkg/outbox"
	"github.com/wishwall/wishwall-backend/pkg/realtime"
	"github.com/wishwall/wishwall-backend/pkg/redis"
	"github.com/wishwall/wishwall-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	realtimeMetrics := metrics.NewRealtimeMetrics(reg)
	bus, err := realtime.Open(ctx, cfg, redisClient, logg, realtimeMetrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logg.Error(context.Background(), "error closing realtime bus", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}
	hasher, err := security.NewHasher(cfg.Password)
	if err != nil {
		return err
	}

	profileRepo := profiles.NewRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		ProfileRepo:    profileRepo,
		SessionManager: sessionManager,
		Hasher:         hasher,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:     dbClient,
		Hasher: hasher,
		Signer: authService,
	})
	if err != nil {
		return err
	}
	profileService, err := profiles.NewService(profileRepo)
	if err != nil {
		return err
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	wishService, err := wishes.NewService(wishes.ServiceParams{
		DB:        dbClient,
		Outbox:    emitter,
		Publisher: bus,
		Logger:    logg,
	})
	if err != nil {
		return err
	}
	likeService, err := likes.NewService(likes.ServiceParams{
		DB:        dbClient,
		Outbox:    emitter,
		Publisher: bus,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	wishRepo := wishes.NewRepository(dbClient.DB())
	adminService, err := admin.NewService(admin.ServiceParams{
		CountProfiles: profileRepo.Count,
		CountWishes:   wishRepo.Count,
		CountLikes:    likes.NewRepository(dbClient.DB()).Total,
	})
	if err != nil {
		return err
	}

	publicFeed, err := feed.NewPublicFeed(feed.Options{
		Changes: bus,
		Lister:  wishService,
		Limit:   cfg.Realtime.SnapshotLimit,
		Logger:  logg,
		Metrics: realtimeMetrics,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Sessions: sessionManager,
			Gatherer: reg,
			Metrics:  metrics.NewHTTPMetrics(reg),
			Limiter:  middleware.NewClientLimiter(cfg.RateLimit),
			Auth:     authService,
			Register: registerService,
			Profiles: profileService,
			Wishes:   wishService,
			Likes:    likeService,
			Admin:    adminService,
			Feed:     publicFeed,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
