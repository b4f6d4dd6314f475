// Package app assembles the runtime shared by every CLI command: config,
// logger, storage, model backend and coordinator.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/caching"
	"github.com/dtnitsch/news-insight/pkg/coordinator"
	"github.com/dtnitsch/news-insight/pkg/db"
	"github.com/dtnitsch/news-insight/pkg/fetcher"
	"github.com/dtnitsch/news-insight/pkg/gateway"
	"github.com/dtnitsch/news-insight/pkg/language"
	"github.com/dtnitsch/news-insight/pkg/parser"
	"github.com/dtnitsch/news-insight/pkg/router"
	"github.com/dtnitsch/news-insight/pkg/settings"
)

// Environment variables read on top of the config file.
const (
	EnvListen    = "NEWS_INSIGHT_LISTEN"
	EnvDB        = "NEWS_INSIGHT_DB"
	EnvCacheDir  = "NEWS_INSIGHT_CACHE_DIR"
	EnvProvider  = "NEWS_INSIGHT_PROVIDER"
	EnvModel     = "NEWS_INSIGHT_MODEL"
	EnvOllamaURL = "NEWS_INSIGHT_OLLAMA_URL"
	EnvAPIKey    = "GEMINI_API_KEY"
)

// Model providers.
const (
	ProviderAuto   = "auto"
	ProviderGenAI  = "genai"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// Logger builds the JSON logger for a command from --quiet and --verbose.
func Logger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("quiet") {
		level = slog.LevelError
	} else if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// LoadConfig resolves configuration: YAML file, then .env, then the
// environment, then CLI flags.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnv(cfg, os.LookupEnv)
	applyFlags(cfg, c)
	return cfg, nil
}

func applyEnv(cfg *models.Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.ListenAddr, EnvListen)
	set(&cfg.DBPath, EnvDB)
	set(&cfg.CacheDir, EnvCacheDir)
	set(&cfg.Model.Provider, EnvProvider)
	set(&cfg.Model.Name, EnvModel)
	set(&cfg.Model.OllamaURL, EnvOllamaURL)
	set(&cfg.Model.APIKey, EnvAPIKey)
}

func applyFlags(cfg *models.Config, c *cli.Context) {
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("provider") {
		cfg.Model.Provider = c.String("provider")
	}
	if c.IsSet("model") {
		cfg.Model.Name = c.String("model")
	}
}

// App is the assembled runtime.
type App struct {
	Config      *models.Config
	Logger      *slog.Logger
	DB          *db.DB
	Hub         *settings.Hub
	Settings    *settings.Service
	Gateway     *gateway.Gateway
	Fetcher     *fetcher.Fetcher
	Parser      *parser.Parser
	Coordinator *coordinator.Coordinator
	Router      *router.Router
}

// New opens storage, probes for a model backend and wires the coordinator.
func New(ctx context.Context, cfg *models.Config, logger *slog.Logger) (*App, error) {
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var cache *caching.Cache
	if cfg.CacheDir != "" {
		cache, err = caching.NewCache(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		if n, err := cache.Prune(); err != nil {
			logger.Warn("Cache prune failed", "dir", cfg.CacheDir, "error", err)
		} else if n > 0 {
			logger.Info("Pruned expired cache entries", "dir", cfg.CacheDir, "removed", n)
		}
	}

	backend, err := SelectBackend(ctx, cfg.Model, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	hub := settings.NewHub(logger)
	svc := settings.NewService(store, hub, logger)
	gw := gateway.New(backend, logger)
	f := fetcher.NewFetcher(
		fetcher.WithCache(cache),
		fetcher.WithRecorder(store),
		fetcher.WithLogger(logger),
	)
	coord := coordinator.New(coordinator.Deps{
		Model:    gw,
		Settings: svc,
		Cache:    store,
		Images:   f,
		Language: language.NewDetector(),
		Logger:   logger,
	})
	r := router.New(coord, svc, logger, router.WithRefreshHook(func(context.Context) {
		msg, err := models.NewMessage(models.MsgSettingsChanged, nil)
		if err != nil {
			return
		}
		hub.Broadcast(msg)
	}))

	return &App{
		Config:      cfg,
		Logger:      logger,
		DB:          store,
		Hub:         hub,
		Settings:    svc,
		Gateway:     gw,
		Fetcher:     f,
		Parser:      parser.New(),
		Coordinator: coord,
		Router:      r,
	}, nil
}

// FromCLI loads config and builds the App for a command.
func FromCLI(c *cli.Context) (*App, error) {
	logger := Logger(c)
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, err
	}
	return New(c.Context, cfg, logger)
}

// Close releases storage and disconnects subscribers.
func (a *App) Close() error {
	a.Hub.Close()
	a.Router.Wait()
	return a.DB.Close()
}

// LoadPage fetches rawURL, extracts its content and records it as the
// latest page.
func (a *App) LoadPage(ctx context.Context, rawURL string) (*models.PageContent, string, error) {
	body, err := a.Fetcher.GetHTMLBytes(ctx, rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	page, err := a.Parser.Extract(rawURL, string(body), time.Now())
	if err != nil {
		return nil, "", fmt.Errorf("failed to extract %s: %w", rawURL, err)
	}
	a.Coordinator.StorePageContent(page)
	return page, string(body), nil
}

// SelectBackend builds the candidate backends for the configured provider
// and probes them. With "auto", a Gemini key wins over a local Ollama.
func SelectBackend(ctx context.Context, cfg models.ModelConfig, logger *slog.Logger) (*gateway.Backend, error) {
	provider := strings.ToLower(cfg.Provider)
	var candidates []*gateway.Backend

	if provider == ProviderAuto || provider == "" || provider == ProviderGenAI {
		if cfg.APIKey != "" {
			b, err := gateway.NewGenAI(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, b)
		} else if provider == ProviderGenAI {
			return nil, fmt.Errorf("provider genai needs %s", EnvAPIKey)
		}
	}
	if provider == ProviderAuto || provider == "" || provider == ProviderOllama {
		ollama := cfg
		if provider != ProviderOllama {
			// A Gemini model name means nothing to Ollama.
			ollama.Name = ""
		}
		candidates = append(candidates, gateway.NewOllama(ollama, &http.Client{}, logger))
	}
	switch provider {
	case ProviderAuto, "", ProviderGenAI, ProviderOllama, ProviderNone:
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	return gateway.Probe(ctx, logger, candidates...), nil
}
