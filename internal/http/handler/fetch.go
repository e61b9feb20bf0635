package handler

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	apperrors "userinfo-service/pkg/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const providerGroup = "provider"

// FetchHandler serves POST /<contextPath>-<provider>/fetch.
type FetchHandler struct {
	resolver AttributeResolver
	pattern  *regexp.Regexp
	logger   *zap.Logger
}

// NewFetchHandler builds the endpoint pattern from the names the resolver
// knows at construction time.
func NewFetchHandler(contextPath string, resolver AttributeResolver, logger *zap.Logger) *FetchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	names := resolver.Names()
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = regexp.QuoteMeta(name)
	}

	pattern := regexp.MustCompile(fmt.Sprintf(`^/%s-(?P<%s>%s)/fetch$`,
		regexp.QuoteMeta(contextPath), providerGroup, strings.Join(quoted, "|")))

	return &FetchHandler{
		resolver: resolver,
		pattern:  pattern,
		logger:   logger,
	}
}

// Matches reports whether the request targets a fetch endpoint.
func (h *FetchHandler) Matches(c echo.Context) bool {
	return h.pattern.MatchString(c.Request().URL.Path)
}

func (h *FetchHandler) Fetch(c echo.Context) error {
	req := c.Request()

	match := h.pattern.FindStringSubmatch(req.URL.Path)
	if match == nil {
		return apperrors.NotFound(fmt.Sprintf(msgEndpointNotFoundFmt, req.RequestURI))
	}
	name := match[h.pattern.SubexpIndex(providerGroup)]

	if req.Method != http.MethodPost {
		return apperrors.MethodNotAllowed(msgMethodNotAllowed)
	}

	if err := requireJSON(c); err != nil {
		return err
	}

	info, err := decodeUserInfo(c)
	if err != nil {
		return err
	}

	attrs, err := h.resolver.Resolve(req.Context(), info, name)
	if err != nil {
		return apperrors.InternalServer(err.Error(), err)
	}

	h.logger.Debug("attributes resolved",
		zap.String("provider", name),
		zap.Bool("found", attrs != nil))

	return respondData(c, attrs)
}
