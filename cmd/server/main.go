package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mdx-assistant/internal/config"
	"mdx-assistant/internal/core"
	httpserver "mdx-assistant/internal/http"
	"mdx-assistant/internal/i18n"
	"mdx-assistant/internal/llm"
	"mdx-assistant/internal/logging"
	"mdx-assistant/internal/session"
)

const serviceName = "mdx-assistant"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		bootLogger := logging.Init(serviceName, "", "")
		bootLogger.Fatal().Err(err).Msg("configuration error")
	}
	logger := logging.Init(serviceName, cfg.Server.Env, cfg.Log.Level)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := loadCatalog(cfg.I18n)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load translations")
	}

	composer, err := core.NewComposer(core.ComposerConfig{
		Strategy:         cfg.Prompt.Strategy,
		SystemPrompt:     cfg.Prompt.SystemPrompt,
		PromptWords:      cfg.Prompt.Words,
		StructuredOutput: cfg.Prompt.StructuredOutput,
	}, catalog)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build prompt composer")
	}
	if cfg.Prompt.Strategy != core.StrategyStructured && !core.CompleteCanvas(cfg.Prompt.Words) {
		logger.Warn().
			Int("prompt_words", len(cfg.Prompt.Words)).
			Int("required", core.MinPromptWords).
			Msg("prompt canvas is incomplete, using the fallback template")
	}

	gateway, err := llm.NewGateway(llm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
		Params: llm.Params{
			Temperature:      cfg.OpenAI.Temperature,
			MaxTokens:        cfg.OpenAI.MaxTokens,
			FrequencyPenalty: cfg.OpenAI.FrequencyPenalty,
			PresencePenalty:  cfg.OpenAI.PresencePenalty,
		},
		Modern: cfg.OpenAI.UseNewClient,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize model gateway")
	}

	ctx := context.Background()
	store, health, closeStore := openStore(ctx, cfg.Session, logger)
	defer closeStore()

	mode := llm.ModeText
	if cfg.Prompt.StructuredOutput {
		mode = llm.ModeStructured
	}
	svc := core.NewDiagnosisService(composer, gateway, catalog, store, core.ServiceOptions{
		Limits: core.Limits{
			MaxFieldLength:  cfg.Limits.MaxFieldLength,
			DefaultLanguage: catalog.DefaultLanguage(),
			Languages:       catalog,
		},
		Mode:   mode,
		Logger: logger,
	})

	srv := httpserver.NewServer(svc, catalog, health, logger)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// a diagnosis may take as long as the model timeout
		WriteTimeout: cfg.OpenAI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	logger.Info().
		Str("port", cfg.Server.Port).
		Str("model", gateway.Model()).
		Str("profile", gateway.Profile().String()).
		Str("strategy", string(cfg.Prompt.Strategy)).
		Bool("structured_output", cfg.Prompt.StructuredOutput).
		Msg("server listening")
	waitForShutdown(server, logger)
}

func loadCatalog(cfg config.I18nConfig) (*i18n.Catalog, error) {
	if cfg.TranslationsPath != "" {
		return i18n.LoadFile(cfg.TranslationsPath, cfg.DefaultLanguage)
	}
	return i18n.LoadEmbedded(cfg.DefaultLanguage)
}

// openStore returns Redis when configured, otherwise a process-local store.
func openStore(ctx context.Context, cfg config.SessionConfig, logger zerolog.Logger) (session.Store, httpserver.HealthChecker, func()) {
	if cfg.RedisURL == "" {
		logger.Info().Dur("ttl", cfg.TTL).Int("max_entries", cfg.MaxEntries).Msg("using in-memory session store")
		return session.NewMemoryStore(cfg.MaxEntries, cfg.TTL), nil, func() {}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	store, err := session.NewRedisStore(pingCtx, cfg.RedisURL, cfg.TTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	logger.Info().Dur("ttl", cfg.TTL).Msg("using redis session store")
	return store, store, func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
}

func waitForShutdown(server *http.Server, logger zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
