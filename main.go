package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goredis "github.com/redis/go-redis/v9"

	"github.com/chative/market-research/internal/agent/assistant"
	"github.com/chative/market-research/internal/agent/dialog"
	"github.com/chative/market-research/internal/agent/graph"
	"github.com/chative/market-research/internal/agent/graph/conversations"
	"github.com/chative/market-research/internal/agent/graph/nodes"
	"github.com/chative/market-research/internal/agent/graph/tools"
	"github.com/chative/market-research/internal/agent/intent"
	"github.com/chative/market-research/internal/agent/model"
	"github.com/chative/market-research/internal/core"
	"github.com/chative/market-research/internal/repo"
	logx "github.com/chative/market-research/pkg/logger"
	pkgredis "github.com/chative/market-research/pkg/redis"
)

// version is set at build time via ldflags.
var version = "dev"

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Generation model.GenerationModelConfig
	Dialog     model.DialogConfig
	Research   model.ResearchConfig
	Storage    model.StorageConfig
	Tools      model.ToolsConfig
}

// loadConfig reads .env when present, then the environment.
func loadConfig(envFile string) (*AppConfig, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment config: %w", err)
	}
	return &cfg, nil
}

func initLogger(cfg *AppConfig) {
	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})
}

// app holds the wired components of one CLI invocation.
type app struct {
	cfg       *AppConfig
	store     model.ResultStore
	assistant *assistant.Service
	generator *nodes.ChatGenerator
	closers   []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("Error during shutdown")
		}
	}
}

// newStoreApp wires only the result store, for commands that read results.
func newStoreApp(ctx context.Context, cfg *AppConfig) (*app, error) {
	a := &app{cfg: cfg}
	store, err := a.openResultStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	return a, nil
}

// newApp wires the full assistant: model, stores, tools and pipeline.
func newApp(ctx context.Context, cfg *AppConfig) (*app, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	a, err := newStoreApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	chat, err := nodes.NewChatModel(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Generation: &cfg.Generation,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}
	a.generator = nodes.NewChatGenerator(chat, cfg.Generation.Model)

	var rdb *goredis.Client
	if cfg.Storage.CacheBackend == "redis" || cfg.Storage.SessionStore == "redis" {
		rdb, err = cfg.Redis.New()
		if err != nil {
			return fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
	}

	cache, err := a.openCache(rdb)
	if err != nil {
		return err
	}
	sessions, err := a.openSessions(rdb)
	if err != nil {
		return err
	}

	pipeline, err := graph.NewPipeline(graph.Config{
		Generator: a.generator,
		Cache:     cache,
		Store:     a.store,
		Evidence:  a.evidence(),
		ModelName: cfg.Generation.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	classifier := intent.NewClassifier(a.generator, cfg.Dialog.HistoryTurns)
	svc, err := assistant.New(assistant.Config{
		Coordinator: dialog.NewCoordinator(classifier, a.generator, cfg.Dialog.HistoryTurns),
		Sessions:    conversations.NewSessionManager(sessions),
		Researcher:  pipeline,
		Store:       a.store,
		Defaults:    cfg.Research.Defaults(),
	})
	if err != nil {
		return err
	}
	a.assistant = svc
	return nil
}

func (a *app) openResultStore(ctx context.Context) (model.ResultStore, error) {
	s := a.cfg.Storage
	switch s.ResultStore {
	case "sqlite":
		store, err := repo.NewSQLiteResultStore(ctx, filepath.Join(s.DataDir, "research.db"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "file":
		return repo.NewFileResultStore(filepath.Join(s.DataDir, "results"))
	default:
		return nil, fmt.Errorf("unknown RESULT_STORE %q (use sqlite or file)", s.ResultStore)
	}
}

func (a *app) openCache(rdb *goredis.Client) (model.CacheStore, error) {
	s := a.cfg.Storage
	switch s.CacheBackend {
	case "memory":
		return repo.NewMemoryCache(), nil
	case "file":
		return repo.NewFileCache(filepath.Join(s.DataDir, "cache"))
	case "redis":
		return repo.NewRedisCache(rdb, a.cfg.Redis.KeyPrefix, s.CacheTTL), nil
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q (use memory, file or redis)", s.CacheBackend)
	}
}

func (a *app) openSessions(rdb *goredis.Client) (model.SessionRepository, error) {
	switch a.cfg.Storage.SessionStore {
	case "memory":
		return repo.NewMemorySessionRepository(), nil
	case "redis":
		return repo.NewRedisSessionRepository(rdb, a.cfg.Redis.KeyPrefix, a.cfg.Dialog.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q (use memory or redis)", a.cfg.Storage.SessionStore)
	}
}

// evidence returns nil when no search key is configured; the verify stage
// then works from prior output only.
func (a *app) evidence() *nodes.EvidenceGatherer {
	t := a.cfg.Tools
	if t.SerperAPIKey == "" {
		logx.Info().Msg("SERPER_API_KEY not set; verification runs without web evidence")
		return nil
	}
	g := &nodes.EvidenceGatherer{
		Searcher: tools.NewSerperSearcher(tools.SerperConfig{
			APIKey:     t.SerperAPIKey,
			BaseURL:    t.SerperBaseURL,
			MaxResults: t.SearchResults,
			Timeout:    t.ScrapeTimeout,
		}),
		MaxQueries: a.cfg.Research.VerifyQueries,
		MaxScrapes: a.cfg.Research.VerifyScrapes,
		Parallel:   a.cfg.Research.VerifyParallel,
	}
	switch t.ScrapeBackend {
	case "browser":
		g.Scraper = tools.NewBrowserScraper(t.ScrapeMaxChar, t.ScrapeTimeout)
	case "none":
	default:
		g.Scraper = tools.NewHTTPScraper(nil, t.ScrapeMaxChar, t.ScrapeTimeout)
	}
	return g
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
