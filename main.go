// File: /main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"eventhub-api/config"
	"eventhub-api/database"
	"eventhub-api/jobs"
	"eventhub-api/logging"
	"eventhub-api/routes"
	"eventhub-api/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Server.Mode == gin.DebugMode,
	})
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("failed to migrate database")
	}

	svc, err := routes.NewServices(db, cfg,
		services.NewYandexGeocoder(cfg.Geocoder),
		services.NewEmailService(cfg.Email))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build services")
	}

	done := make(chan struct{})
	router := routes.NewRouter(cfg, svc, done)

	cleanup := jobs.NewActivationCleanupJob(svc.Users, cfg.Auth.CleanupInterval)
	if cfg.Auth.ActivationRequired {
		cleanup.Start()
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      routes.SetupCORS(cfg.CORS)(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logging.Info().Str("addr", server.Addr).Str("mode", cfg.Server.Mode).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logging.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}

	close(done)
	cleanup.Stop()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logging.Info().Msg("server stopped")
}
