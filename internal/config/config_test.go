package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		envPort, envContextPath, envServerReadTimeout, envServerWriteTimeout,
		envServerShutdownTimeout, envRequestBodyLimit, envMappingConfig, envLDAPConfig,
		envLDAPUser, envLDAPPassword, envSharedSecret, envRateLimitRPS,
		envRateLimitBurst, envMetricsEnabled, envProfilingEnabled, envLogLevel,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.Server.Address())
	assert.Equal(t, "userinfo", cfg.Server.ContextPath)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "1M", cfg.Server.RequestBodyLimit)
	assert.Equal(t, "conf/mapping.json", cfg.Providers.MappingConfigPath)
	assert.Equal(t, "conf/ldap.json", cfg.Providers.LDAPConfigPath)
	assert.Empty(t, cfg.Providers.LDAPUser)
	assert.Empty(t, cfg.Auth.SharedSecret)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.App.MetricsEnabled)
	assert.False(t, cfg.App.ProfilingEnabled)
	assert.Equal(t, "info", cfg.App.LogLevel)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(envPort, "8081")
	t.Setenv(envContextPath, "attrs")
	t.Setenv(envServerReadTimeout, "3s")
	t.Setenv(envServerWriteTimeout, "7")
	t.Setenv(envMappingConfig, "/etc/userinfo/mapping.yaml")
	t.Setenv(envLDAPUser, "cn=svc")
	t.Setenv(envLDAPPassword, "pw")
	t.Setenv(envSharedSecret, "s3cret")
	t.Setenv(envRateLimitRPS, "0")
	t.Setenv(envMetricsEnabled, "false")
	t.Setenv(envProfilingEnabled, "true")
	t.Setenv(envLogLevel, "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Address())
	assert.Equal(t, "attrs", cfg.Server.ContextPath)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 7*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "/etc/userinfo/mapping.yaml", cfg.Providers.MappingConfigPath)
	assert.Equal(t, "cn=svc", cfg.Providers.LDAPUser)
	assert.Equal(t, "pw", cfg.Providers.LDAPPassword)
	assert.Equal(t, "s3cret", cfg.Auth.SharedSecret)
	assert.Equal(t, 0, cfg.RateLimit.RequestsPerSecond)
	assert.False(t, cfg.App.MetricsEnabled)
	assert.True(t, cfg.App.ProfilingEnabled)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(envRateLimitBurst, "many")
	t.Setenv(envServerShutdownTimeout, "soon")
	t.Setenv(envMetricsEnabled, "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.App.MetricsEnabled)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "9090", ContextPath: "userinfo"},
			RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "HTTP_PORT must be set"},
		{name: "non numeric port", mutate: func(c *Config) { c.Server.Port = "http" }, wantErr: "HTTP_PORT must be a port number"},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = "70000" }, wantErr: "HTTP_PORT must be a port number"},
		{name: "empty context path", mutate: func(c *Config) { c.Server.ContextPath = "" }, wantErr: "CONTEXT_PATH must be set"},
		{name: "slash in context path", mutate: func(c *Config) { c.Server.ContextPath = "a/b" }, wantErr: "CONTEXT_PATH must not contain"},
		{name: "negative rate", mutate: func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }, wantErr: "must not be negative"},
		{name: "negative burst", mutate: func(c *Config) { c.RateLimit.Burst = -1 }, wantErr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InvalidConfiguration(t *testing.T) {
	clearEnv(t)
	t.Setenv(envContextPath, "user/info")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
