package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zentra/linkpreview/config"
	"github.com/zentra/linkpreview/internal/middleware"
	"github.com/zentra/linkpreview/internal/services/account"
	"github.com/zentra/linkpreview/internal/services/calllink"
	"github.com/zentra/linkpreview/internal/services/groups"
	"github.com/zentra/linkpreview/internal/services/linkpreview"
	"github.com/zentra/linkpreview/internal/services/settings"
	"github.com/zentra/linkpreview/internal/services/stickers"
	"github.com/zentra/linkpreview/internal/utils"
	"github.com/zentra/linkpreview/pkg/database"
	"github.com/zentra/linkpreview/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgresPool(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	// Connect to Redis
	redisClient, err := database.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	// Connect to MinIO
	minioClient, err := storage.ConnectMinIO(storage.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.BucketStickers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MinIO")
	}

	// Collaborators
	groupClient, err := groups.NewClient(cfg.Groups.ServiceURL, cfg.LinkPreviews.RequestTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create group service client")
	}
	callLinkClient, err := calllink.NewClient(cfg.CallLinks.ServiceURL, cfg.CallLinks.Secret, cfg.CallLinks.CredentialTTL, cfg.LinkPreviews.RequestTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create calling service client")
	}
	settingsService := settings.NewService(redisClient, cfg.LinkPreviews.DefaultEnabled)

	previewService := linkpreview.NewService(linkpreview.Dependencies{
		Settings: settingsService,
		Fetcher: linkpreview.NewFetcher(linkpreview.SessionConfig{
			UserAgent: cfg.LinkPreviews.UserAgent,
			Timeout:   cfg.LinkPreviews.RequestTimeout,
			Policy:    linkpreview.NewDefaultPolicy(),
		}),
		Thumbnails: &linkpreview.ThumbnailDeriver{MaxDimension: cfg.LinkPreviews.MaxThumbnailDimension},
		Stickers:   stickers.NewService(minioClient, cfg.Storage.BucketStickers, cfg.Storage.StickerCacheDir),
		Groups:     groupClient,
		CallLinks:  callLinkClient,
		Accounts:   account.NewService(db),
		Strings:    linkpreview.NewStrings(cfg.LinkPreviews.Locale),
	})
	previewHandler := linkpreview.NewHandler(previewService, settingsService)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(chimiddleware.RedirectSlashes)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", utils.RequestIDHeader, "Origin"},
		ExposedHeaders:   []string{utils.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
		Debug:            cfg.IsDevelopment(),
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Enough for a page fetch followed by an image fetch.
		r.Use(middleware.TimeoutMiddleware(2*cfg.LinkPreviews.RequestTimeout + 5*time.Second))
		r.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
		r.Use(middleware.RateLimitMiddleware(redisClient, cfg.Server.RateLimitRPS))

		r.Mount("/link-previews", previewHandler.Routes())
	})

	// Create HTTP server
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting link preview service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
