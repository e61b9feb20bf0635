package middleware

import (
	"strings"

	apperrors "userinfo-service/pkg/errors"
	"userinfo-service/pkg/secret"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	headerAuthorization = "Authorization"
	bearerScheme        = "bearer"
	authHeaderParts     = 2

	msgMissingAuthorization = "missing authorization token"
	msgInvalidAuthorization = "invalid authorization token"
)

// SharedSecretConfig configures the shared secret gate.
type SharedSecretConfig struct {
	// Skipper decides which requests bypass the check.
	Skipper echomiddleware.Skipper
	// Secret is either the plain secret or its bcrypt hash.
	Secret string
}

// SharedSecret rejects requests whose bearer token does not match the
// configured secret.
func SharedSecret(value string) echo.MiddlewareFunc {
	return SharedSecretWithConfig(SharedSecretConfig{Secret: value})
}

func SharedSecretWithConfig(cfg SharedSecretConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = echomiddleware.DefaultSkipper
	}
	verify := secret.Verifier(cfg.Secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			token := extractBearerToken(c)
			if token == "" {
				return apperrors.Unauthorized(msgMissingAuthorization)
			}
			if !verify(token) {
				return apperrors.Unauthorized(msgInvalidAuthorization)
			}

			return next(c)
		}
	}
}

func extractBearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(headerAuthorization)
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != authHeaderParts || strings.ToLower(parts[0]) != bearerScheme {
		return ""
	}

	return parts[1]
}
