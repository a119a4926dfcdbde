package cli

import (
	"fmt"

	"go.uber.org/zap"

	"hypewatch/internal/embed"
	"hypewatch/internal/gateway"
	"hypewatch/internal/logging"
	"hypewatch/internal/model"
	"hypewatch/internal/pipeline"
	"hypewatch/internal/sources"
	"hypewatch/internal/store"
)

// app bundles the wired components a command needs. Commands that never talk
// to the reasoning service (sources, predictions, fetch) run without an API
// key; needGateway enforces the key for those that do.
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	store    *store.Store
	registry *sources.Registry
	pipe     *pipeline.Pipeline
}

func newApp(needGateway bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var gw gateway.Gateway
	if needGateway {
		gw, err = gateway.NewOpenAIGateway(cfg.Gateway, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("gateway: %w (set OPENAI_API_KEY or gateway.api_key)", err)
		}
	}

	embedder, err := embed.NewEngine(cfg.Embedding)
	if err != nil {
		logger.Warn("embedding disabled", zap.Error(err))
		embedder = nil
	}

	fetcher := sources.NewFetcher(cfg.HTTP)
	registry := sources.NewRegistry(cfg.Sources, fetcher, logger)

	pipe := pipeline.New(st, registry, gw, embedder, pipeline.NewOperations(), cfg, logger)

	return &app{cfg: cfg, logger: logger, store: st, registry: registry, pipe: pipe}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
