package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacetraveling/internal/api"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/database"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/render"
	"github.com/spacetraveling/internal/repository"
	"github.com/spacetraveling/internal/service"
	"github.com/spacetraveling/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		log := logger.New("info", "json")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting spacetraveling server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Content client, behind the Redis cache when one is configured
	httpClient, err := content.NewHTTPClient(&cfg.Content, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create content client")
	}
	var client content.Client = httpClient

	rdb, err := database.NewRedis(&cfg.Cache, log)
	if err != nil {
		log.Warn().Err(err).Msg("Content cache unavailable, continuing without it")
	}
	if rdb != nil {
		defer rdb.Close()
		client = content.NewCachedClient(httpClient, content.NewRedisStore(rdb), cfg.Cache.TTL, log)
	}

	renderer, err := render.New(cfg.Site)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load templates")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Initialize services
	services := service.NewServices(client, repos, renderer, cfg, log)

	if cfg.Build.OnStartup {
		job, err := services.Job.CreateBuild(context.Background(), &models.BuildRequest{Trigger: models.TriggerStartup})
		if err != nil {
			log.Error().Err(err).Msg("Failed to queue startup build")
		} else {
			log.Info().Str("job_id", job.ID).Msg("Startup build queued")
		}
	}

	// Start background job processor
	go services.Job.StartProcessor(context.Background())
	log.Info().Msg("Background build processor started")

	// Initialize router
	router := api.NewRouter(services, renderer, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("fallback", cfg.Site.FallbackMode).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop build processor
	services.Job.StopProcessor()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
