package bootstrap

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pdfchat/internal/api"
	appsvc "pdfchat/internal/app"
	"pdfchat/internal/auth"
	"pdfchat/internal/cache"
	"pdfchat/internal/chunks"
	"pdfchat/internal/config"
	"pdfchat/internal/pkg/logger"
	"pdfchat/internal/platform/localstore"
	"pdfchat/internal/poller"
	"pdfchat/internal/preview"
	"pdfchat/internal/registry"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     *localstore.Store
	Tokens    *auth.TokenProvider
	API       *api.Client
	Registry  *registry.Client
	Engine    *poller.Engine
	Fetcher   *preview.Fetcher
	Auth      *auth.Service
	Documents *appsvc.DocumentService

	StartedAt time.Time
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.Log.File, cfg.Log.Console)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	store, err := localstore.Open(cfg.Storage.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("open credential store failed: %w", err)
	}

	tokens := auth.NewTokenProvider(store, log)
	apiClient := api.NewClient(cfg.Server.BaseURL, cfg.RequestTimeout(), tokens, log)
	reg := registry.NewClient(apiClient)
	engine := poller.NewEngine(reg, cfg.PollInterval(), log)
	inspector := chunks.NewInspector(apiClient, cache.NewChunkCache(cfg.ChunkTTL()), log)
	fetcher := preview.NewFetcher(apiClient, log)

	documents := appsvc.NewDocumentService(
		apiClient,
		reg,
		engine,
		inspector,
		fetcher,
		appsvc.PollBudgets{
			Passive:   cfg.Poll.PassiveBudget,
			Reprocess: cfg.Poll.ReprocessBudget,
		},
		log,
	)

	return &App{
		Config:    cfg,
		Logger:    log,
		Store:     store,
		Tokens:    tokens,
		API:       apiClient,
		Registry:  reg,
		Engine:    engine,
		Fetcher:   fetcher,
		Auth:      auth.NewService(apiClient, tokens),
		Documents: documents,
		StartedAt: time.Now(),
	}, nil
}

func (a *App) Close() error {
	if a.Documents != nil {
		a.Documents.Close()
	}
	if a.Fetcher != nil {
		a.Fetcher.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return nil
}
