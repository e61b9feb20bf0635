package http

import (
	"context"
	stdhttp "net/http"

	"userinfo-service/internal/config"
	"userinfo-service/internal/http/handler"
	"userinfo-service/internal/http/middleware"
	"userinfo-service/internal/metrics"
	"userinfo-service/pkg/profiling"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	jsonKeyStatus = "status"
	statusOK      = "ok"
)

type ServerDependencies struct {
	Config   *config.Config
	Resolver handler.AttributeResolver
	// Metrics is optional.
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewErrorHandler(logger)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
	}
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(cfg.Server.RequestBodyLimit))
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst > 0 {
		e.Use(middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst).Middleware())
	}

	e.GET("/health", healthCheck)
	if deps.Metrics != nil {
		deps.Metrics.RegisterRoute(e)
	}
	if cfg.App.ProfilingEnabled {
		profiling.RegisterPprofRoutes(e)
		profiling.RegisterMemoryRoute(e)
	}

	fetchHandler := handler.NewFetchHandler(cfg.Server.ContextPath, deps.Resolver, logger)

	var fetchMiddleware []echo.MiddlewareFunc
	if cfg.Auth.SharedSecret != "" {
		fetchMiddleware = append(fetchMiddleware, middleware.SharedSecretWithConfig(middleware.SharedSecretConfig{
			Skipper: func(c echo.Context) bool { return !fetchHandler.Matches(c) },
			Secret:  cfg.Auth.SharedSecret,
		}))
	}
	// Everything else is routed through the fetch handler, which answers
	// unknown paths and wrong methods itself.
	e.Any("/*", fetchHandler.Fetch, fetchMiddleware...)

	return &Server{
		echo: e,
		deps: deps,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() stdhttp.Handler {
	return s.echo
}

func (s *Server) Start() error {
	return s.echo.Start(s.deps.Config.Server.Address())
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func healthCheck(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{
		jsonKeyStatus: statusOK,
	})
}
