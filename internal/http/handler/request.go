package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"userinfo-service/internal/provider"
	apperrors "userinfo-service/pkg/errors"

	"github.com/labstack/echo/v4"
)

const contentTypeJSON = "application/json"

const (
	fieldUserID    = "userId"
	fieldAnonymous = "anonymous"
	fieldRoles     = "roles"
)

var jsonNull = []byte("null")

func requireJSON(c echo.Context) error {
	if !strings.HasPrefix(strings.ToLower(c.Request().Header.Get(echo.HeaderContentType)), contentTypeJSON) {
		return apperrors.UnsupportedMediaType(msgContentTypeJSONRequired)
	}
	return nil
}

// decodeUserInfo reads the identity from the request body. Fields are checked
// in a fixed order and the first problem is reported.
func decodeUserInfo(c echo.Context) (provider.UserInfo, error) {
	var (
		info   provider.UserInfo
		fields map[string]json.RawMessage
	)

	if err := c.Echo().JSONSerializer.Deserialize(c, &fields); err != nil {
		return info, apperrors.BadRequest(decodeMessage(err))
	}

	raw, ok := fields[fieldUserID]
	if !ok {
		return info, apperrors.BadRequest(fmt.Sprintf(msgMissingPropertyFmt, fieldUserID))
	}
	if isNull(raw) || json.Unmarshal(raw, &info.UserID) != nil {
		return info, apperrors.BadRequest(fmt.Sprintf(msgPropertyTypeFmt, fieldUserID, "a string"))
	}

	raw, ok = fields[fieldAnonymous]
	if !ok {
		return info, apperrors.BadRequest(fmt.Sprintf(msgMissingPropertyFmt, fieldAnonymous))
	}
	if isNull(raw) || json.Unmarshal(raw, &info.Anonymous) != nil {
		return info, apperrors.BadRequest(fmt.Sprintf(msgPropertyTypeFmt, fieldAnonymous, "a boolean"))
	}

	raw, ok = fields[fieldRoles]
	if !ok {
		return info, apperrors.BadRequest(fmt.Sprintf(msgMissingPropertyFmt, fieldRoles))
	}
	if isNull(raw) || json.Unmarshal(raw, &info.Roles) != nil {
		return info, apperrors.BadRequest(fmt.Sprintf(msgPropertyTypeFmt, fieldRoles, "a Array"))
	}
	if info.Roles == nil {
		info.Roles = []string{}
	}

	return info, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

func decodeMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}
