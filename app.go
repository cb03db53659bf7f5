package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/catalog"
	"github.com/ekaya-inc/ekaya-eda/pkg/config"
	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/logging"
	"github.com/ekaya-inc/ekaya-eda/pkg/observability"
	"github.com/ekaya-inc/ekaya-eda/pkg/partition"
	"github.com/ekaya-inc/ekaya-eda/pkg/services"
)

// app holds the process-wide collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    partition.Store
	provider *llm.ResilientProvider
	registry *prometheus.Registry
	resolver services.Resolver
}

// newLogger loads configuration and builds the logger only; commands that
// never call the provider use it directly.
func newLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStore loads the catalog and opens every partition backing.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (partition.Store, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	for _, spec := range cat.Views {
		for i := range spec.Partitions {
			spec.Partitions[i].Options = config.ResolveOptionsForDocker(spec.Partitions[i].Options)
		}
	}
	store, err := partition.Open(ctx, cat, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open partitions: %w", err)
	}
	return store, nil
}

// newApp wires configuration, partitions, the generation provider and the
// resolver. Close releases the partition backings.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(cfg.ProviderConfig(), logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create generation provider: %w", err), store.Close())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("catalog", cfg.Catalog.Path),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", provider.Model()),
		zap.Int("max_refine_iterations", cfg.Resolver.MaxRefineIterations),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		provider: provider,
		registry: registry,
		resolver: services.NewResolver(store, provider, metrics, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close partitions", zap.Error(err))
	}
	_ = a.logger.Sync()
}
