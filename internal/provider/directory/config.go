package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"userinfo-service/internal/provider"
	"userinfo-service/pkg/logger"

	"go.uber.org/zap"
)

// fileConfig is the layout of the ldap configuration file.
type fileConfig struct {
	Enabled           bool     `json:"enabled"`
	URL               string   `json:"url"`
	User              string   `json:"user"`
	Password          string   `json:"password"`
	UserBaseDN        string   `json:"userBaseDn"`
	UserSearchPattern *string  `json:"userSearchPattern"`
	RoleAttribute     *string  `json:"roleAttribute"`
	UserAttributes    []string `json:"userAttributes"`
	Timeout           string   `json:"timeout"`
	SearchBufferSize  int      `json:"searchBufferSize"`
}

// LoadOptions carries settings that override the configuration file.
type LoadOptions struct {
	User     string
	Password string
}

// Load reads the ldap configuration file and creates a provider. It returns
// (nil, nil) when the file does not exist or the provider is disabled.
func Load(path string, opts LoadOptions, log *zap.Logger) (*Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("ldap conf not found", zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, provider.ConfigError(path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, provider.ConfigError(path, err)
	}
	if !fc.Enabled {
		log.Info("ldap mapping is disabled", zap.String("path", path))
		return nil, nil
	}

	var logged map[string]any
	if err := json.Unmarshal(raw, &logged); err == nil {
		log.Info("ldap conf found",
			zap.String("path", path),
			zap.Any("config", logger.SanitizeMap(logged)))
	}

	cfg, err := fc.toConfig(opts)
	if err != nil {
		return nil, provider.ConfigError(path, err)
	}
	return New(cfg, log), nil
}

func (fc fileConfig) toConfig(opts LoadOptions) (Config, error) {
	if fc.URL == "" {
		return Config{}, errors.New("url must be set")
	}
	if fc.UserBaseDN == "" {
		return Config{}, errors.New("userBaseDn must be set")
	}

	cfg := Config{
		URL:              fc.URL,
		User:             fc.User,
		Password:         fc.Password,
		SearchBufferSize: fc.SearchBufferSize,
		Search: SearchSpec{
			BaseDN:         fc.UserBaseDN,
			FilterTemplate: defaultSearchPattern,
			RoleAttribute:  defaultRoleAttribute,
			Attributes:     defaultUserAttributes,
		},
	}
	if opts.User != "" {
		cfg.User = opts.User
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
	if fc.UserSearchPattern != nil {
		cfg.Search.FilterTemplate = *fc.UserSearchPattern
	}
	if fc.RoleAttribute != nil {
		cfg.Search.RoleAttribute = *fc.RoleAttribute
	}
	if fc.UserAttributes != nil {
		cfg.Search.Attributes = fc.UserAttributes
	}
	if fc.Timeout != "" {
		timeout, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid timeout %q: %w", fc.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	return cfg, nil
}
