package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	portdocstore "github.com/rosterhub/rosterhub/internal/port/docstore"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "rosterhub.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ROSTERHUB_PORT")
	setString(&cfg.Server.CORSOrigin, "ROSTERHUB_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ROSTERHUB_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ROSTERHUB_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ROSTERHUB_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ROSTERHUB_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ROSTERHUB_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Provider.URL, "ROSTERHUB_PROVIDER_URL")
	setString(&cfg.Provider.APIKey, "ROSTERHUB_PROVIDER_API_KEY")
	setDuration(&cfg.Provider.Timeout, "ROSTERHUB_PROVIDER_TIMEOUT")
	setInt(&cfg.Provider.ListLimit, "ROSTERHUB_PROVIDER_LIST_LIMIT")
	setString(&cfg.Auth.TokenSecret, "ROSTERHUB_TOKEN_SECRET")
	setInt(&cfg.Batch.MaxWrites, "ROSTERHUB_BATCH_MAX_WRITES")
	setString(&cfg.Replicator.SourceCollection, "ROSTERHUB_REPL_SOURCE")
	setString(&cfg.Replicator.DestCollection, "ROSTERHUB_REPL_DEST")
	setString(&cfg.Replicator.DefaultTenant, "ROSTERHUB_REPL_DEFAULT_TENANT")
	setInt64(&cfg.Cache.MaxBytes, "ROSTERHUB_CACHE_MAX_BYTES")
	setDuration(&cfg.Cache.TTL, "ROSTERHUB_CACHE_TTL")
	setString(&cfg.Logging.Level, "ROSTERHUB_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ROSTERHUB_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ROSTERHUB_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "ROSTERHUB_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ROSTERHUB_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "ROSTERHUB_RATE_RPS")
	setInt(&cfg.Rate.Burst, "ROSTERHUB_RATE_BURST")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
}

// validate rejects configurations the service cannot run with.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Batch.MaxWrites <= 0 {
		return errors.New("batch.max_writes must be positive")
	}
	if cfg.Batch.MaxWrites >= portdocstore.HardWriteLimit {
		return fmt.Errorf("batch.max_writes must be below the store limit of %d", portdocstore.HardWriteLimit)
	}
	if cfg.Replicator.SourceCollection == "" || cfg.Replicator.DestCollection == "" {
		return errors.New("replicator.source_collection and replicator.dest_collection are required")
	}
	if cfg.Provider.ListLimit <= 0 {
		return errors.New("provider.list_limit must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
