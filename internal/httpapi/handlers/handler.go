package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/agent"
	"github.com/careerpilot/careerpilot/internal/ai"
	"github.com/careerpilot/careerpilot/internal/chat"
	"github.com/careerpilot/careerpilot/internal/config"
	"github.com/careerpilot/careerpilot/internal/docs"
	"github.com/careerpilot/careerpilot/internal/jobsearch"
	"github.com/careerpilot/careerpilot/internal/letters"
	"github.com/careerpilot/careerpilot/internal/resume"
	"github.com/careerpilot/careerpilot/internal/store/redisstore"
)

type Handler struct {
	DB  *gorm.DB
	Cfg config.Config

	Provider ai.Provider
	Registry *agent.Registry
	Loop     *agent.Loop
	Locks    *agent.LockTable

	ChatRepo   *chat.Repo
	Resumes    *resume.Store
	Documents  *docs.Store
	Index      docs.SimilarityIndex
	Extractor  docs.Extractor
	Search     jobsearch.Provider
	Fetcher    jobsearch.Fetcher
	Letters    *letters.Repo
	Queue      agent.LetterQueue
	Notifier   *redisstore.Notifier
	Subs       *redisstore.SubscriptionStore
	Logger     *slog.Logger
}

// Collaborators are the externally constructed pieces main owns.
type Collaborators struct {
	Objects  docs.ObjectStore
	Queue    agent.LetterQueue
	Notifier *redisstore.Notifier
	Subs     *redisstore.SubscriptionStore
	Logger   *slog.Logger
}

func NewHandler(db *gorm.DB, cfg config.Config, co Collaborators) *Handler {
	reg := ai.NewRegistry(ai.Settings{
		OllamaBaseURL:     cfg.OllamaBaseURL,
		OllamaModel:       cfg.OllamaModel,
		OpenRouterBaseURL: cfg.OpenRouterBaseURL,
		OpenRouterAPIKey:  cfg.OpenRouterAPIKey,
		OpenRouterModel:   cfg.OpenRouterModel,
		OpenRouterSiteURL: cfg.OpenRouterSiteURL,
		OpenRouterAppName: cfg.OpenRouterAppName,
	})
	provider, err := reg.Get(context.Background(), cfg.AIProvider, "")
	if err != nil {
		panic(fmt.Sprintf("unsupported AI_PROVIDER=%q: %v", cfg.AIProvider, err))
	}

	logger := co.Logger
	if logger == nil {
		logger = slog.Default()
	}

	index := docs.NewLexicalIndex(db)

	registry := agent.NewRegistry(logger)
	agent.RegisterAll(registry)
	loop := agent.NewLoop(provider, registry, cfg.AgentMaxToolCalls, cfg.AgentTurnTimeout, logger)

	return &Handler{
		DB:  db,
		Cfg: cfg,

		Provider: provider,
		Registry: registry,
		Loop:     loop,
		Locks:    agent.NewLockTable(),

		ChatRepo:  chat.NewRepo(db),
		Resumes:   resume.NewStore(db),
		Documents: docs.NewStore(db, co.Objects, index),
		Index:     index,
		Extractor: docs.NewTextExtractor(),
		Search:    jobsearch.NewAdzunaProvider(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry),
		Fetcher:   jobsearch.NewCollyFetcher(),
		Letters:   letters.NewRepo(db),
		Queue:     co.Queue,
		Notifier:  co.Notifier,
		Subs:      co.Subs,
		Logger:    logger,
	}
}
