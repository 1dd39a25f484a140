package app

import (
	"errors"
	"os"
	"strings"
	"time"

	"ecoleta/internal/platforms/ecoleta"
	"ecoleta/internal/platforms/ibge"
	"ecoleta/lib/configutil"
	"ecoleta/lib/telemetry"

	"github.com/joho/godotenv"
)

const ConfigName = "ecoleta.json5"

const (
	EnvBackendUrl = "ECOLETA_BACKEND_URL"
	EnvIbgeUrl    = "ECOLETA_IBGE_URL"
)

const DefaultBackendUrl = "http://localhost:3333"

type IbgeConfig struct {
	BaseUrl           string  `json:"base_url"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	// nil means the default, 0 disables the cache
	CacheMinutes      *int    `json:"cache_minutes"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
}

type BackendConfig struct {
	BaseUrl        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type Config struct {
	Ibge      IbgeConfig       `json:"ibge"`
	Backend   BackendConfig    `json:"backend"`
	Telemetry telemetry.Config `json:"telemetry"`
	// directory http exchanges are dumped to, disabled if empty
	DumpDir string `json:"dump_dir"`
	// IANA name of the timezone times are shown in
	Timezone string `json:"timezone"`
}

// WithDefaults fills every unset field with its default.
func (c Config) WithDefaults() Config {
	if c.Ibge.BaseUrl == "" {
		c.Ibge.BaseUrl = ibge.DefaultBaseUrl
	}
	if c.Ibge.RequestsPerSecond == 0 {
		c.Ibge.RequestsPerSecond = 5
	}
	if c.Ibge.CacheMinutes == nil {
		minutes := 60
		c.Ibge.CacheMinutes = &minutes
	}
	if c.Ibge.TimeoutSeconds == 0 {
		c.Ibge.TimeoutSeconds = 30
	}
	if c.Backend.BaseUrl == "" {
		c.Backend.BaseUrl = DefaultBackendUrl
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 30
	}
	return c
}

// WithEnv overrides the urls with the environment variables that are set.
func (c Config) WithEnv(getenv func(string) string) Config {
	if v := strings.TrimSpace(getenv(EnvBackendUrl)); v != "" {
		c.Backend.BaseUrl = v
	}
	if v := strings.TrimSpace(getenv(EnvIbgeUrl)); v != "" {
		c.Ibge.BaseUrl = v
	}
	return c
}

func (c IbgeConfig) ClientOptions() ibge.ClientOptions {
	var cacheTTL time.Duration
	if c.CacheMinutes != nil {
		cacheTTL = time.Duration(*c.CacheMinutes) * time.Minute
	}
	return ibge.ClientOptions{
		BaseUrl:           c.BaseUrl,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		CacheTTL:          cacheTTL,
	}
}

func (c BackendConfig) ClientOptions() ecoleta.ClientOptions {
	return ecoleta.ClientOptions{
		BaseUrl: c.BaseUrl,
		Timeout: time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

// LoadConfig loads .env, then the config file at path (or ecoleta.json5 found
// by walking up from the working directory when path is empty) and finally
// applies the environment and the defaults. A missing config file is not an
// error, an explicitly given path that does not exist is.
func LoadConfig(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	var cfg Config
	if path != "" {
		cfg, err = configutil.ReadConfig[Config](path)
		if err != nil {
			return Config{}, err
		}
	} else {
		cfg, _, err = configutil.ReadRecursively[Config](".", ConfigName)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	return cfg.WithEnv(os.Getenv).WithDefaults(), nil
}
