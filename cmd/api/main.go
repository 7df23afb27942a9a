package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"thumbgen/internal/adapter/repo"
	"thumbgen/internal/domain"
	"thumbgen/internal/http/handlers"
	"thumbgen/internal/http/httpapi"
	"thumbgen/internal/imagegen"
	"thumbgen/internal/infra"
	"thumbgen/internal/infra/credentials"
	"thumbgen/internal/providers/gemini"
	"thumbgen/internal/providers/image"
	"thumbgen/internal/providers/prompt"
	"thumbgen/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api stopped with error")
	}
	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *infra.Config, logger infra.Logger) error {
	var (
		users   domain.UserRepository
		history domain.HistoryRepository
		creds   *credentials.Store
	)
	if cfg.UsesDatabase() {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := infra.ApplySchema(ctx, pool); err != nil {
			return err
		}
		runner := infra.NewSQLRunner(pool, logger)
		users = repo.NewUserRepository(runner)
		history = repo.NewHistoryRepository(runner, cfg.HistoryMaxRecords)
		creds = credentials.NewStore(runner)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, users and history are kept in memory")
		users = repo.NewMemoryUserRepository()
		history = repo.NewMemoryHistoryRepository(cfg.HistoryMaxRecords)
	}

	keys, err := resolveKeys(ctx, creds, cfg)
	if err != nil {
		return err
	}
	var genaiClient *genai.Client
	if keys.Gemini != "" {
		genaiClient, err = gemini.NewClient(ctx, gemini.Options{
			APIKey:  keys.Gemini,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.ProviderTimeout,
		})
		if err != nil {
			return err
		}
	}

	orchestrator := imagegen.New(imagegen.Options{
		Providers: image.FromConfig(cfg, keys, genaiClient, &logger),
		Retry: imagegen.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Backoff:     cfg.RetryBackoff,
			IsRetryable: imagegen.IsRateLimited,
		},
		SlotStagger: cfg.SlotStagger,
		Logger:      &logger,
	})
	for _, mode := range []imagegen.Mode{imagegen.ModeTextToImage, imagegen.ModeImageToImage} {
		if !orchestrator.Ready(mode) {
			logger.Warn().Str("mode", string(mode)).Msg("no image provider configured")
		}
	}

	enhancer := prompt.Select(prompt.Settings{
		Provider:      cfg.PromptProvider,
		Gemini:        genaiClient,
		GeminiModel:   cfg.GeminiTextModel,
		OpenAIKey:     keys.OpenAI,
		OpenAIModel:   cfg.OpenAITextModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIOrg:     cfg.OpenAIOrg,
	}, &logger)

	uploader, staticDir, err := newUploader(ctx, cfg)
	if err != nil {
		return err
	}

	app := &handlers.App{
		Config:    cfg,
		Logger:    logger,
		Users:     users,
		History:   history,
		Images:    orchestrator,
		Enhancer:  enhancer,
		Uploader:  uploader,
		JWTSecret: cfg.JWTSecret,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)
	ln, err := net.Listen("tcp", server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr(), err)
	}
	logger.Info().
		Str("addr", ln.Addr().String()).
		Str("storage", cfg.StorageDriver).
		Str("enhancer", enhancer.Name()).
		Msg("API listening")
	return server.Run(ctx, ln, cfg.HTTPIdleTimeout)
}

// resolveKeys prefers environment keys and falls back to integration_tokens.
func resolveKeys(ctx context.Context, creds *credentials.Store, cfg *infra.Config) (image.Keys, error) {
	var keys image.Keys
	var err error
	if keys.Gemini, err = creds.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey); err != nil {
		return keys, err
	}
	if keys.OpenAI, err = creds.Resolve(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey); err != nil {
		return keys, err
	}
	if keys.Qwen, err = creds.Resolve(ctx, credentials.ProviderQwen, cfg.QwenAPIKey); err != nil {
		return keys, err
	}
	return keys, nil
}

// newUploader returns the configured storage backend and, for the
// filesystem driver, the directory to serve under /static.
func newUploader(ctx context.Context, cfg *infra.Config) (storage.Uploader, string, error) {
	if cfg.StorageDriver == "s3" {
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		return store, "", err
	}
	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		return nil, "", err
	}
	return store, store.BasePath(), nil
}
