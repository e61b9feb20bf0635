package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"userinfo-service/internal/config"
	"userinfo-service/internal/provider"
	"userinfo-service/internal/provider/directory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(mappingPath, ldapPath string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:             "0",
			ContextPath:      "userinfo",
			ReadTimeout:      time.Second,
			WriteTimeout:     time.Second,
			ShutdownTimeout:  time.Second,
			RequestBodyLimit: "1M",
		},
		Providers: config.ProvidersConfig{
			MappingConfigPath: mappingPath,
			LDAPConfigPath:    ldapPath,
		},
		App: config.AppConfig{MetricsEnabled: true},
	}
}

func TestInitializeService_MappingOnly(t *testing.T) {
	dir := t.TempDir()
	mappingPath := writeFile(t, dir, "mapping.json", `{"enabled":true,"users":{"alice":{"team":"core"}}}`)

	core, logs := observer.New(zapcore.InfoLevel)
	svc, err := InitializeService(testConfig(mappingPath, filepath.Join(dir, "ldap.json")), zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, []string{"json"}, svc.Providers())
	assert.Equal(t, 1, logs.FilterMessage("LDAPAttributeProvider disabled.").Len())
	assert.NoError(t, svc.Shutdown(context.Background()))
}

func TestInitializeService_BothProviders(t *testing.T) {
	dir := t.TempDir()
	mappingPath := writeFile(t, dir, "mapping.yaml", "enabled: true\nroles:\n  editor:\n    level: 2\n")
	ldapPath := writeFile(t, dir, "ldap.json", `{
		"enabled": true,
		"url": "ldap://127.0.0.1:1",
		"userBaseDn": "ou=users,dc=example,dc=org"
	}`)

	svc, err := InitializeService(testConfig(mappingPath, ldapPath), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"json", "ldap"}, svc.Providers())
	assert.NoError(t, svc.Shutdown(context.Background()))
}

func TestInitializeService_NoProviders(t *testing.T) {
	dir := t.TempDir()
	mappingPath := writeFile(t, dir, "mapping.json", `{"enabled":false}`)

	core, logs := observer.New(zapcore.InfoLevel)
	_, err := InitializeService(testConfig(mappingPath, filepath.Join(dir, "missing.json")), zap.New(core))

	require.ErrorIs(t, err, provider.ErrNoProviders)
	assert.Equal(t, 1, logs.FilterMessage("JSONAttributeProvider disabled.").Len())
	assert.Equal(t, 1, logs.FilterMessage("LDAPAttributeProvider disabled.").Len())
}

func TestInitializeService_MalformedConfiguration(t *testing.T) {
	dir := t.TempDir()

	_, err := InitializeService(testConfig(writeFile(t, dir, "mapping.json", `{"enabled":`), ""), nil)
	assert.ErrorIs(t, err, provider.ErrConfiguration)

	mappingPath := writeFile(t, dir, "ok.json", `{"enabled":true}`)
	ldapPath := writeFile(t, dir, "ldap.json", `{"enabled":true,"userBaseDn":"dc=example"}`)
	_, err = InitializeService(testConfig(mappingPath, ldapPath), nil)
	assert.ErrorIs(t, err, provider.ErrConfiguration)
}

func TestInitializeService_CredentialsFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	ldapPath := writeFile(t, dir, "ldap.json", `{
		"enabled": true,
		"url": "ldap://127.0.0.1:1",
		"userBaseDn": "dc=example"
	}`)

	cfg := testConfig(filepath.Join(dir, "none.json"), ldapPath)
	cfg.Providers.LDAPUser = "cn=svc"
	cfg.Providers.LDAPPassword = "pw"

	svc, err := InitializeService(cfg, nil)
	require.NoError(t, err)
	defer svc.Shutdown(context.Background())

	assert.Equal(t, []string{directory.Name}, svc.Providers())
}
