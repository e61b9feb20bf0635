package app

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"userinfo-service/internal/config"
	"userinfo-service/internal/http"
	"userinfo-service/internal/provider"

	"go.uber.org/zap"
)

// Service is the running userinfo application.
type Service struct {
	config   *config.Config
	registry *provider.Registry
	server   *http.Server
	logger   *zap.Logger
}

// NewService is a convenience wrapper around InitializeService.
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	return InitializeService(cfg, logger)
}

// Providers returns the names of the enabled providers.
func (s *Service) Providers() []string {
	return s.registry.Names()
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Service) Start() error {
	s.logger.Info("server started",
		zap.String("port", s.config.Server.Port),
		zap.Strings("providers", s.registry.Names()))

	if err := s.server.Start(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and releases the providers.
func (s *Service) Shutdown(ctx context.Context) error {
	return errors.Join(
		s.server.Shutdown(ctx),
		s.registry.Close(),
	)
}

func closeAll(providers []provider.Provider, logger *zap.Logger) {
	for _, p := range providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close provider", zap.String("provider", p.Name()), zap.Error(err))
			}
		}
	}
}
