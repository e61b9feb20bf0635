package app

import (
	"fmt"

	"userinfo-service/internal/config"
	"userinfo-service/internal/http"
	"userinfo-service/internal/metrics"
	"userinfo-service/internal/provider"
	"userinfo-service/internal/provider/directory"
	"userinfo-service/internal/provider/mapping"

	"go.uber.org/zap"
)

// InitializeService loads the configured providers and wires the server.
func InitializeService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	providers, err := loadProviders(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry, err := provider.NewRegistry(logger, providers...)
	if err != nil {
		closeAll(providers, logger)
		return nil, fmt.Errorf("failed to create provider registry: %w", err)
	}

	var m *metrics.Metrics
	if cfg.App.MetricsEnabled {
		m = metrics.New()
		registry.SetRecorder(m)
	}

	server := http.NewServer(&http.ServerDependencies{
		Config:   cfg,
		Resolver: registry,
		Metrics:  m,
		Logger:   logger,
	})

	return &Service{
		config:   cfg,
		registry: registry,
		server:   server,
		logger:   logger,
	}, nil
}

// loadProviders returns the enabled providers in dispatch order.
func loadProviders(cfg *config.Config, logger *zap.Logger) ([]provider.Provider, error) {
	var providers []provider.Provider

	table, err := mapping.Load(cfg.Providers.MappingConfigPath, logger.Named(mapping.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping provider: %w", err)
	}
	if table != nil {
		providers = append(providers, table)
	} else {
		logger.Info("JSONAttributeProvider disabled.")
	}

	dir, err := directory.Load(cfg.Providers.LDAPConfigPath, directory.LoadOptions{
		User:     cfg.Providers.LDAPUser,
		Password: cfg.Providers.LDAPPassword,
	}, logger.Named(directory.Name))
	if err != nil {
		closeAll(providers, logger)
		return nil, fmt.Errorf("failed to load directory provider: %w", err)
	}
	if dir != nil {
		providers = append(providers, dir)
	} else {
		logger.Info("LDAPAttributeProvider disabled.")
	}

	return providers, nil
}
