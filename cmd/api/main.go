package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/imgproc"
	"server/internal/infra"
	"server/internal/portrait"
	imageprovider "server/internal/providers/image"
	"server/internal/storage"
)

func main() {
	// Load .env (optional).
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	generator := buildGenerator(cfg, logger)
	logger.Info().Str("provider", generator.Name()).Msg("image provider configured")

	var store *storage.FileStore
	if cfg.StoragePath != "" {
		store, err = storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			logger.Warn().Err(err).Msg("storage unavailable, generated images will be inlined as data URIs")
			store = nil
		}
	}

	var moderator portrait.Moderator
	if cfg.ModerationEnabled {
		moderator = portrait.NewKeywordModerator()
	}

	orchestrator, err := portrait.NewOrchestrator(portrait.OrchestratorOptions{
		Generator:      generator,
		Cache:          portrait.NewResultCache(cfg.CacheTTL),
		Tracker:        portrait.NewTracker(cfg.JobRetention),
		Moderator:      moderator,
		Store:          store,
		StorageBaseURL: cfg.StorageBaseURL,
		Optimize:       imgproc.Optimize,
		Logger:         logger,
		JobTimeout:     cfg.JobTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to assemble orchestrator")
	}

	app := handlers.NewApp(orchestrator, logger)

	staticDir := ""
	if store != nil {
		staticDir = store.BasePath()
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       staticDir,
		StaticPrefix:    cfg.StorageBaseURL,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func buildGenerator(cfg *infra.Config, logger infra.Logger) imageprovider.Generator {
	switch cfg.Provider {
	case "huggingface":
		return imageprovider.NewHuggingFace(imageprovider.HuggingFaceOptions{
			BaseURL: cfg.HuggingFaceBaseURL,
			APIKey:  cfg.HuggingFaceAPIKey,
			Logger:  logger,
		})
	case "replicate":
		return imageprovider.NewReplicate(imageprovider.ReplicateOptions{
			BaseURL:  cfg.ReplicateBaseURL,
			APIToken: cfg.ReplicateAPIToken,
			Model:    cfg.ReplicateModel,
			Logger:   logger,
		})
	case "segmind":
		return imageprovider.NewSegmind(imageprovider.SegmindOptions{
			BaseURL: cfg.SegmindBaseURL,
			APIKey:  cfg.SegmindAPIKey,
			Logger:  logger,
		})
	case "pollinations":
		return imageprovider.NewPollinations(imageprovider.PollinationsOptions{
			BaseURL: cfg.PollinationsBaseURL,
			APIKey:  cfg.PollinationsAPIKey,
			Logger:  logger,
		})
	default:
		logger.Warn().Str("provider", cfg.Provider).Msg("unknown provider, falling back to pollinations")
		return imageprovider.NewPollinations(imageprovider.PollinationsOptions{
			BaseURL: cfg.PollinationsBaseURL,
			APIKey:  cfg.PollinationsAPIKey,
			Logger:  logger,
		})
	}
}
