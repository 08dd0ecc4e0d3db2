package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"server/internal/adapter/repo"
	"server/internal/fetch"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/infra/geoip"
	"server/internal/middleware"
	"server/internal/pipeline"
	appraiseprovider "server/internal/providers/appraise"
	imageprovider "server/internal/providers/image"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	jobs := repo.NewJobRepository(runner)
	valuations := repo.NewValuationRepository(runner)
	users := repo.NewUserRepository(runner)

	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	apiKey := cfg.GeminiAPIKey
	if apiKey == "" {
		// Fall back to the key provisioned via the geminikey tool.
		apiKey, err = credentials.NewStore(runner).GeminiAPIKey(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("no gemini api key configured")
		}
	}
	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create genai client")
	}
	defer genaiClient.Close()

	bus := pipeline.NewBus(cfg.EventBufferSize, logger)
	executor := &pipeline.Executor{
		Jobs:        jobs,
		Valuations:  valuations,
		Fetcher:     fetch.NewClient(cfg.FetchTimeout),
		Appraiser:   appraiseprovider.NewGeminiAppraiser(genaiClient, cfg.GeminiValuationModel, logger),
		Regenerator: imageprovider.NewGeminiRegenerator(genaiClient, cfg.GeminiImageModel, logger),
		Store:       store,
		Bus:         bus,
		Logger:      logger,
	}
	scheduler := pipeline.NewTaskScheduler(executor, cfg.PipelineMaxConcurrent, cfg.PipelineTimeout, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	streaks := &pipeline.StreakSubscriber{Users: users, Bus: bus, Logger: logger}
	go streaks.Run(workerCtx)

	reaper := &pipeline.Reaper{
		Jobs:     jobs,
		Lease:    cfg.ProcessingLease,
		Interval: cfg.ReaperInterval,
		Logger:   logger,
	}
	go reaper.Run(workerCtx)

	var countryLookup middleware.CountryLookup
	if resolver, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		Config:     cfg,
		Logger:     logger,
		SQL:        runner,
		Jobs:       jobs,
		Valuations: valuations,
		Users:      users,
		Scheduler:  scheduler,
		Validate:   handlers.NewValidator(cfg.ImageSourceAllowlist),
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, countryLookup))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("pipelines did not drain before deadline")
	}
	stopWorkers()
	logger.Info().Msg("server stopped")
}
