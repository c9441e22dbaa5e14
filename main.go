package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/graph/observers"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/repo"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/server"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
	pkgpostgres "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/postgres"
	pkgredis "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/redis"
)

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Env      core.Environment `envconfig:"APP_ENV" default:"development"`
	LogLevel string           `envconfig:"LOG_LEVEL"`
	HTTPAddr string           `envconfig:"HTTP_ADDR" default:":8080"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	CatalogPath string `envconfig:"CATALOG_PATH" default:"catalog.yaml"`

	// Agent configs
	Decision   model.DecisionModelConfig
	Response   model.ResponseModelConfig
	Prompt     model.PromptConfig
	Agent      model.AgentConfig
	Checkpoint model.CheckpointConfig
	Tools      model.ToolsConfig
}

func main() {
	envErr := godotenv.Load(".env")

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Env, Level: cfg.LogLevel})
	if envErr != nil && !cfg.Env.IsProduction() {
		logx.Warn().Err(envErr).Msg("Could not load .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := model.LoadCatalogFile(cfg.CatalogPath)
	if err != nil {
		logx.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("Failed to load catalog")
	}

	// ====================================================
	// Checkpoint store and per-thread locking
	ttl, err := time.ParseDuration(cfg.Checkpoint.TTL)
	if err != nil {
		logx.Fatal().Err(err).Str("value", cfg.Checkpoint.TTL).Msg("Invalid CHECKPOINT_TTL")
	}
	lockTTL, err := time.ParseDuration(cfg.Checkpoint.LockTTL)
	if err != nil {
		logx.Fatal().Err(err).Str("value", cfg.Checkpoint.LockTTL).Msg("Invalid CHECKPOINT_LOCK_TTL")
	}

	var (
		store  model.CheckpointStore
		locker model.ThreadLocker
	)
	switch cfg.Checkpoint.Backend {
	case "memory":
		store = repo.NewMemoryCheckpointStore()
		locker = repo.NewLocalLocker()
		logx.Warn().Msg("Using in-memory checkpoints, threads are lost on restart")
	default:
		rdb, err := cfg.Redis.New()
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()
		logx.Info().Msg("Connected to Redis successfully")

		store = repo.NewRedisCheckpointStore(rdb, ttl, repo.WithJournalLen(cfg.Checkpoint.JournalLen))
		locker = repo.ChainLocker{repo.NewLocalLocker(), repo.NewRedisThreadLocker(rdb, lockTTL)}
	}

	dbs := pkgpostgres.NewPool(cfg.Postgres)
	defer dbs.Close()

	// ====================================================
	// Metrics and agent
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observers.NewMetrics(reg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to register metrics")
	}

	engine, err := graph.BuildAgent(ctx, graph.Config{
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		DecisionModel: cfg.Decision,
		ResponseModel: cfg.Response,
		Prompt:        cfg.Prompt,
		Agent:         cfg.Agent,
		Tools:         cfg.Tools,
		Store:         store,
		Locker:        locker,
		Databases:     dbs,
		Metrics:       metrics,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build agent")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewHandler(engine, catalog, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.Env.String()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
