// Command api serves the bug tracker REST API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bugtracker/tracker-system/internal/api"
	"github.com/bugtracker/tracker-system/internal/api/handler"
	"github.com/bugtracker/tracker-system/internal/core/ports"
	"github.com/bugtracker/tracker-system/internal/core/service"
	mongodb "github.com/bugtracker/tracker-system/internal/infrastructure/db/mongo"
	redisdb "github.com/bugtracker/tracker-system/internal/infrastructure/db/redis"
	"github.com/bugtracker/tracker-system/internal/infrastructure/oauth"
	"github.com/bugtracker/tracker-system/internal/infrastructure/queue"
	"github.com/bugtracker/tracker-system/internal/infrastructure/render"
	"github.com/bugtracker/tracker-system/internal/pkg/config"
	"github.com/bugtracker/tracker-system/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "bugtracker-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "bugtracker-api",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	if err := mongodb.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare mongodb schema")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	// --- Repositories and adapters ---
	userRepo := mongodb.NewUserRepository(db)
	bugRepo := mongodb.NewBugRepository(db)
	activityRepo := mongodb.NewActivityRepository(db)
	revoker := redisdb.NewTokenRevoker(rdb)

	var google ports.OAuthProvider
	if cfg.Google.Enabled() {
		google = oauth.NewGoogle(oauth.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
	} else {
		log.Info().Msg("google login disabled: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	// --- Activity pipeline ---
	dispatcher := queue.NewDispatcher(cfg.ActivityWorkers, service.NewActivityService(activityRepo, log), log)
	dispatcher.Start(context.Background())

	// --- Services ---
	authService := service.NewAuthService(service.AuthDeps{
		Users:     userRepo,
		Revoker:   revoker,
		States:    redisdb.NewStateStore(rdb),
		Google:    google,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTTTL,
		Logger:    log,
	})
	bugService := service.NewBugService(service.BugDeps{
		Bugs:       bugRepo,
		Users:      userRepo,
		Activities: activityRepo,
		Publisher:  dispatcher,
		Cache:      redisdb.NewResponseCache(rdb),
		Renderer:   render.New(),
		Logger:     log,
	})
	userService := service.NewUserService(userRepo, log)

	e := api.NewRouter(api.Deps{
		Auth:    authService,
		Bugs:    bugService,
		Users:   userService,
		Revoker: revoker,
		Health: map[string]handler.Pinger{
			"mongodb": handler.PingFunc(func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }),
			"redis":   handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
		JWTSecret:     cfg.JWTSecret,
		CORSOrigins:   cfg.CORSOrigins,
		RateLimitAuth: cfg.RateLimitAuth,
		Metrics:       true,
		Logger:        log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}

	// Requests are drained; flush the remaining activity before the stores close.
	dispatcher.Close()
	log.Info().Msg("shutdown complete")
}
