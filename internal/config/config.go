package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                  = "HTTP_PORT"
	envContextPath           = "CONTEXT_PATH"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envRequestBodyLimit      = "REQUEST_BODY_LIMIT"
	envMappingConfig         = "MAPPING_CONFIG"
	envLDAPConfig            = "LDAP_CONFIG"
	envLDAPUser              = "LDAP_USER"
	envLDAPPassword          = "LDAP_PW"
	envSharedSecret          = "AUTH_SHARED_SECRET"
	envRateLimitRPS          = "RATE_LIMIT_RPS"
	envRateLimitBurst        = "RATE_LIMIT_BURST"
	envMetricsEnabled        = "METRICS_ENABLED"
	envProfilingEnabled      = "PROFILING_ENABLED"
	envLogLevel              = "LOG_LEVEL"
)

const (
	defaultServerPort          = "9090"
	defaultContextPath         = "userinfo"
	defaultServerReadTimeout   = 10 * time.Second
	defaultServerWriteTimeout  = 10 * time.Second
	defaultServerShutdown      = 10 * time.Second
	defaultRequestBodyLimit    = "1M"
	defaultMappingConfig       = "conf/mapping.json"
	defaultLDAPConfig          = "conf/ldap.json"
	defaultRateLimitRPS        = 100
	defaultRateLimitBurst      = 200
	defaultMetricsEnabled      = true
	defaultProfilingEnabled    = false
	defaultLogLevel            = "info"
	errPortRequired            = "HTTP_PORT must be set"
	errPortInvalidFmt          = "HTTP_PORT must be a port number, got %q"
	errContextPathRequired     = "CONTEXT_PATH must be set"
	errContextPathSlashFmt     = "CONTEXT_PATH must not contain '/', got %q"
	errRateLimitNegative       = "RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

type Config struct {
	Server    ServerConfig
	Providers ProvidersConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	App       AppConfig
}

type ServerConfig struct {
	Port             string
	ContextPath      string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	RequestBodyLimit string
}

type ProvidersConfig struct {
	MappingConfigPath string
	LDAPConfigPath    string
	LDAPUser          string
	LDAPPassword      string
}

type AuthConfig struct {
	// SharedSecret gates the fetch endpoint when set. It is either the secret
	// itself or its bcrypt hash.
	SharedSecret string
}

type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

type AppConfig struct {
	MetricsEnabled bool
	// ProfilingEnabled exposes pprof and memory statistics. Never enable it
	// on a publicly reachable port.
	ProfilingEnabled bool
	LogLevel         string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:             getEnv(envPort, defaultServerPort),
			ContextPath:      getEnv(envContextPath, defaultContextPath),
			ReadTimeout:      getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:     getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout:  getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
			RequestBodyLimit: getEnv(envRequestBodyLimit, defaultRequestBodyLimit),
		},
		Providers: ProvidersConfig{
			MappingConfigPath: getEnv(envMappingConfig, defaultMappingConfig),
			LDAPConfigPath:    getEnv(envLDAPConfig, defaultLDAPConfig),
			LDAPUser:          os.Getenv(envLDAPUser),
			LDAPPassword:      os.Getenv(envLDAPPassword),
		},
		Auth: AuthConfig{
			SharedSecret: os.Getenv(envSharedSecret),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getIntEnv(envRateLimitRPS, defaultRateLimitRPS),
			Burst:             getIntEnv(envRateLimitBurst, defaultRateLimitBurst),
		},
		App: AppConfig{
			MetricsEnabled:   getBoolEnv(envMetricsEnabled, defaultMetricsEnabled),
			ProfilingEnabled: getBoolEnv(envProfilingEnabled, defaultProfilingEnabled),
			LogLevel:         getEnv(envLogLevel, defaultLogLevel),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New(errPortRequired)
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 0 || port > 65535 {
		return fmt.Errorf(errPortInvalidFmt, c.Server.Port)
	}

	if c.Server.ContextPath == "" {
		return errors.New(errContextPathRequired)
	}

	if strings.Contains(c.Server.ContextPath, "/") {
		return fmt.Errorf(errContextPathSlashFmt, c.Server.ContextPath)
	}

	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New(errRateLimitNegative)
	}

	return nil
}

// Address returns the listen address of the HTTP server.
func (c *ServerConfig) Address() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		fmt.Fprint(os.Stderr, messages.invalidEnvValue(key, value))
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		fmt.Fprint(os.Stderr, messages.invalidEnvValue(key, value))
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
		fmt.Fprint(os.Stderr, messages.invalidEnvValue(key, value))
	}
	return defaultValue
}
