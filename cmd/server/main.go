package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/medassist/symptomcheck/internal/ai"
	"github.com/medassist/symptomcheck/internal/audit"
	"github.com/medassist/symptomcheck/internal/diagnosis"
	"github.com/medassist/symptomcheck/internal/shared/config"
	"github.com/medassist/symptomcheck/internal/shared/database"
	"github.com/medassist/symptomcheck/internal/shared/metrics"
	secmiddleware "github.com/medassist/symptomcheck/internal/shared/middleware"
	"github.com/medassist/symptomcheck/internal/wearable"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Server.Env == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	logger.Info().Msg("migrations applied")

	// Audit log: load the chain head before accepting traffic.
	auditRepo := audit.NewRepository(db.Pool)
	if err := auditRepo.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("audit initialization failed")
	}

	// Collaborator clients.
	aiClient := ai.NewClient(cfg.AI, logger)

	var wearableSource diagnosis.WearableSource
	if cfg.Wearable.Enabled {
		tokenRepo := wearable.NewTokenRepository(db.Pool)
		wearableSource = wearable.NewClient(cfg.Wearable, tokenRepo, logger)
	}

	// Core pipeline.
	cache := diagnosis.NewCache(cfg.Cache)
	svc := diagnosis.NewService(cfg.AI, cache, aiClient, auditRepo, wearableSource, logger)
	historyRepo := diagnosis.NewRepository(db.Pool)
	limiter := secmiddleware.NewIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	handler := diagnosis.NewHandler(svc, historyRepo, cfg.Auth, limiter, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.BodyLimit(1 << 20))
	r.Use(secmiddleware.CORS)
	r.Use(metrics.Middleware)

	// Operational surface (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(db))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/diagnosis", handler.Routes())
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Must exceed the AI provider deadline so timeouts surface as
		// API_TIMEOUT responses, not severed connections.
		WriteTimeout: cfg.AI.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	waitForShutdown(server, logger)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func readyHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.Health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","db":"unhealthy"}`))
			return
		}
		w.Write([]byte(`{"status":"ok","db":"ok"}`))
	}
}

func waitForShutdown(server *http.Server, logger zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
}
