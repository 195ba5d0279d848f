package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Kosench/shortlinks/internal/cache"
	"github.com/Kosench/shortlinks/internal/config"
	"github.com/Kosench/shortlinks/internal/database"
	"github.com/Kosench/shortlinks/internal/handler"
	"github.com/Kosench/shortlinks/internal/logger"
	"github.com/Kosench/shortlinks/internal/repository"
	"github.com/Kosench/shortlinks/internal/service"
	"github.com/Kosench/shortlinks/internal/sweeper"
)

const (
	serviceName     = "shortlinks"
	serviceVersion  = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("shortlinks stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, dialect, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")

	linkCache, cachePinger, cacheBackend := newCache(cfg, log)
	defer linkCache.Close()

	store := repository.NewStore(db, dialect)
	linkService := service.NewLinkService(store, linkCache, log, service.Options{
		LinkTTL:               cfg.Links.TTL,
		ResolveCacheTTL:       cfg.Cache.ResolveTTL,
		MaxGenerationAttempts: cfg.Links.MaxGenerationAttempts,
		BaseURL:               cfg.GetBaseURL(),
	})

	router := newRouter(cfg, log, handler.NewLinkHandler(linkService), handler.NewSystemHandler(
		handler.PingerFunc(func(ctx context.Context) error { return database.HealthCheck(ctx, db) }),
		cachePinger,
		handler.SystemInfo{
			Service:        serviceName,
			Version:        serviceVersion,
			DatabaseDriver: cfg.Database.Driver,
			DatabaseVersion: func(ctx context.Context) (string, error) {
				return database.GetVersion(ctx, db, dialect)
			},
			CacheBackend: cacheBackend,
		},
	))

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("base_url", cfg.GetBaseURL()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Sweeper.Enabled {
		sw := sweeper.New(store.Reclaimer, cfg.Sweeper.Interval, cfg.RetentionWindow(), log)
		g.Go(func() error {
			return sw.Run(gctx)
		})
	} else {
		log.Warn().Msg("sweeper disabled")
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("server gracefully stopped")
	return nil
}

// newCache picks the configured backend. An unreachable Redis degrades to the
// in-process cache instead of failing startup.
func newCache(cfg *config.Config, log zerolog.Logger) (cache.Cache, handler.Pinger, string) {
	switch cfg.Cache.Backend {
	case "none":
		log.Warn().Msg("cache disabled")
		return cache.NewNullCache(), nil, "none"
	case "redis":
		redisClient, err := cache.NewRedisClient(cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
		})
		if err == nil {
			log.Info().Str("addr", cfg.Redis.Host+":"+cfg.Redis.Port).Msg("connected to redis")
			return redisClient, redisClient, "redis"
		}
		log.Warn().Err(err).Msg("failed to connect to redis, using in-memory cache")
	}

	memoryCache := cache.NewMemoryCache(cfg.Cache.ResolveTTL, 2*cfg.Cache.ResolveTTL)
	return memoryCache, memoryCache, "memory"
}

func newRouter(cfg *config.Config, log zerolog.Logger, links *handler.LinkHandler, system *handler.SystemHandler) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.RequestLogger(log))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.GetAllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handler.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", handler.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	system.RegisterRoutes(router)

	api := router.Group("/api")
	api.Use(handler.IdentityMiddleware(cfg.Auth.JWTSecret))
	links.RegisterRoutes(api)

	return router
}

