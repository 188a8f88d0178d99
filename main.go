package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/profileapp-be/internal/api"
	"github.com/isdelr/profileapp-be/internal/api/handlers"
	"github.com/isdelr/profileapp-be/internal/auth"
	"github.com/isdelr/profileapp-be/internal/cache"
	"github.com/isdelr/profileapp-be/internal/config"
	"github.com/isdelr/profileapp-be/internal/database"
	"github.com/isdelr/profileapp-be/internal/logger"
	"github.com/isdelr/profileapp-be/internal/scheduler"
	"github.com/isdelr/profileapp-be/internal/services"
	"github.com/isdelr/profileapp-be/internal/store"
	"github.com/isdelr/profileapp-be/internal/upload"
	"github.com/isdelr/profileapp-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	storage, err := upload.NewStorage(cfg.Upload.Dir, cfg.Upload.MaxBytes)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Upload.Dir).Msg("Failed to prepare upload directory")
	}

	// Profile store, optionally behind the Redis read cache
	var profiles store.ProfileRepository = store.NewSQLStore(db)
	redisCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if redisCache != nil {
		defer redisCache.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable; continuing, reads fall through to the database")
		}
		cancel()
		profiles = store.NewCachedStore(profiles, redisCache, cfg.Redis.CacheTTL)
	}

	if cfg.SeedDemoProfiles {
		n, err := store.SeedDemo(context.Background(), profiles)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed demo profiles")
		}
		if n > 0 {
			log.Info().Int("count", n).Msg("Seeded demo profiles")
		}
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	denylist := auth.NewSQLDenylist(db)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, denylist)
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	profileService := services.NewProfileService(profiles, eventService, hub, cfg.Upload.DefaultImageURL)

	// Set up and run the background scheduler
	jobs := scheduler.New(eventService)
	if err := jobs.Add(scheduler.JobUploadSweep, cfg.Jobs.UploadSweepSchedule,
		scheduler.UploadSweep(profileService, storage, cfg.Jobs.UploadOrphanGrace)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule upload sweep")
	}
	if err := jobs.Add(scheduler.JobTokenPurge, cfg.Jobs.TokenPurgeSchedule, scheduler.TokenPurge(denylist)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule token purge")
	}
	jobs.Start()

	// Set up router
	router := api.NewRouter(api.Handlers{
		Profiles:  handlers.NewProfileHandler(profileService, storage, cfg.Upload.PublicBaseURL),
		Users:     handlers.NewUserHandler(userService, tokens, cfg.IsProduction()),
		Events:    handlers.NewEventHandler(eventService),
		Health:    handlers.NewHealthHandler(db, storage, redisCache),
		WebSocket: handlers.NewWebSocketHandler(hub, cfg.HTTP.AllowedOrigins),
		Legacy:    handlers.NewLegacyUploadHandler(profileService, storage, cfg.Upload.PublicBaseURL),
	}, tokens, api.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		UploadDir:      cfg.Upload.Dir,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jobs.Stop(ctx) // Stop the scheduler
	hub.Stop()     // Disconnect live clients

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
