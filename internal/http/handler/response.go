package handler

import (
	"net/http"

	"userinfo-service/internal/provider"

	"github.com/labstack/echo/v4"
)

func respondData(c echo.Context, attrs provider.Attributes) error {
	if attrs == nil {
		attrs = provider.Attributes{}
	}
	return c.JSON(http.StatusOK, map[string]any{jsonKeyData: attrs})
}
