// Package mapping implements the static attribute provider backed by a
// mapping file of user and role entries.
package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"userinfo-service/internal/provider"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Name is the context path postfix of this provider.
const Name = "json"

// Table maps user ids and role names to attributes.
type Table struct {
	Users map[string]provider.Attributes `json:"users" yaml:"users"`
	Roles map[string]provider.Attributes `json:"roles" yaml:"roles"`
}

type fileConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Table   `yaml:",inline"`
}

// Provider resolves attributes from a Table. A user entry always wins over a
// role entry; among roles the identity's role order decides.
type Provider struct {
	users map[string]provider.Attributes
	roles map[string]provider.Attributes
}

// New creates a provider over table. The table must not be modified afterwards.
func New(table Table) *Provider {
	p := &Provider{users: table.Users, roles: table.Roles}
	if p.users == nil {
		p.users = map[string]provider.Attributes{}
	}
	if p.roles == nil {
		p.roles = map[string]provider.Attributes{}
	}
	return p
}

// Load reads a mapping file. It returns (nil, nil) when the file does not
// exist or the mapping is disabled.
func Load(path string, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("mapping file does not exist", zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, provider.ConfigError(path, err)
	}

	var cfg fileConfig
	if err := decode(path, raw, &cfg); err != nil {
		return nil, provider.ConfigError(path, fmt.Errorf("can not be parsed into mapping structure: %w", err))
	}

	if !cfg.Enabled {
		logger.Info("mapping via json is disabled", zap.String("path", path))
		return nil, nil
	}

	for _, section := range []map[string]provider.Attributes{cfg.Users, cfg.Roles} {
		for key, attrs := range section {
			if err := provider.ValidateAttributes(attrs); err != nil {
				return nil, provider.ConfigError(path, fmt.Errorf("entry %q: %w", key, err))
			}
		}
	}

	logger.Debug("mapping data read",
		zap.String("path", path),
		zap.Int("users", len(cfg.Users)),
		zap.Int("roles", len(cfg.Roles)))

	return New(cfg.Table), nil
}

func decode(path string, raw []byte, dst *fileConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, dst)
	default:
		return json.Unmarshal(raw, dst)
	}
}

func (p *Provider) Name() string {
	return Name
}

// Resolve never fails.
func (p *Provider) Resolve(_ context.Context, info provider.UserInfo) (provider.Attributes, error) {
	key := info.UserID
	if info.Anonymous {
		key = provider.AnonymousKey
	}
	if attrs, ok := p.users[key]; ok && attrs != nil {
		return maps.Clone(attrs), nil
	}

	for _, role := range info.Roles {
		if attrs, ok := p.roles[role]; ok && attrs != nil {
			return maps.Clone(attrs), nil
		}
	}
	return nil, nil
}
