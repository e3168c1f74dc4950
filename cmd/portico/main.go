package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portico-labs/portico/internal/app"
	"github.com/portico-labs/portico/internal/auth"
	"github.com/portico-labs/portico/internal/observability"
	"github.com/portico-labs/portico/internal/platform/cache"
	"github.com/portico-labs/portico/internal/platform/db"
	"github.com/portico-labs/portico/internal/roles"
	"github.com/portico-labs/portico/internal/token"
	"github.com/portico-labs/portico/internal/users"
	"github.com/portico-labs/portico/internal/webapps"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	tokenService := token.NewService(cfg.TokenSecret, cfg.TokenTTL)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokenService)
	authHandler := auth.NewHandler(logger, authService)
	authHandler.Metrics = metrics
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo)
	rolesHandler := roles.NewHandler(logger, rolesService)
	rolesSyncer := roles.NewSyncer(rolesRepo)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, rolesSyncer)
	usersHandler := users.NewHandler(logger, usersService)

	catalogCache := cache.NewJSONCache(redisClient, webapps.CatalogCacheKey, cfg.CatalogTTL)
	webappsRepo := webapps.NewRepository(pool)
	webappsService := webapps.NewService(webappsRepo, rolesSyncer, catalogCache, logger)
	webappsHandler := webapps.NewHandler(logger, webappsService)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		RolesHandler:   rolesHandler,
		UsersHandler:   usersHandler,
		WebAppsHandler: webappsHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
