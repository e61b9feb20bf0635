package http

import (
	"errors"
	"fmt"
	"net/http"

	"userinfo-service/internal/http/middleware"
	apperrors "userinfo-service/pkg/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const jsonKeyError = "error"

// NewErrorHandler returns the echo error handler. Sentinel errors are mapped
// to status codes and the error message is always sent as {"error": msg}.
// Malformed request bodies are reported as 500.
func NewErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := mapError(err)

		fields := []zap.Field{
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Int("status", code),
			zap.Error(err),
		}
		if code >= http.StatusInternalServerError {
			logger.Error("internal_server_error", fields...)
		} else {
			logger.Warn("client_error", fields...)
		}

		if err := c.JSON(code, map[string]string{jsonKeyError: message}); err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
	}
}

func mapError(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperrors.ErrMethodNotAllowed):
		code = http.StatusMethodNotAllowed
	case errors.Is(err, apperrors.ErrUnsupportedMediaType):
		code = http.StatusUnsupportedMediaType
	case errors.Is(err, apperrors.ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrBadRequest):
		code = http.StatusInternalServerError
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return code, appErr.Message
	}
	return code, err.Error()
}
