package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "taskgraph.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom is Load with an explicit YAML path.
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

// loadYAML unmarshals the file over cfg. Returns nil if it does not exist.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
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
// Only non-empty, parseable values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Logging.Level, "TASKGRAPH_LOG_LEVEL")
	setString(&cfg.Logging.Format, "TASKGRAPH_LOG_FORMAT")

	setString(&cfg.Storage.ProjectRoot, "TASKGRAPH_PROJECT_ROOT")
	setString(&cfg.Storage.DataDir, "TASKGRAPH_DATA_DIR")
	setDuration(&cfg.Storage.FlushDelay, "TASKGRAPH_FLUSH_DELAY")
	setBool(&cfg.Storage.Journal, "TASKGRAPH_JOURNAL")

	setInt(&cfg.Reinforcement.TurnInterval, "TASKGRAPH_TURN_INTERVAL")
	setInt(&cfg.Reinforcement.TokenThreshold, "TASKGRAPH_TOKEN_THRESHOLD")
	setBool(&cfg.Reinforcement.IncludeKnowledgeGraphContext, "TASKGRAPH_INCLUDE_KG_CONTEXT")
	setInt(&cfg.Reinforcement.MaxRecentIntents, "TASKGRAPH_MAX_RECENT_INTENTS")

	setInt64(&cfg.Cache.AnalyticsMaxCost, "TASKGRAPH_ANALYTICS_CACHE_BYTES")
}

// validate checks value ranges.
func validate(cfg *Config) error {
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", cfg.Logging.Format)
	}
	if cfg.Storage.FlushDelay <= 0 {
		return errors.New("storage.flush_delay must be > 0")
	}
	if cfg.Storage.Journal && cfg.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required when the journal is enabled")
	}
	if cfg.Reinforcement.TurnInterval < 1 {
		return errors.New("reinforcement.turn_interval must be >= 1")
	}
	if cfg.Reinforcement.TokenThreshold < 1 {
		return errors.New("reinforcement.token_threshold must be >= 1")
	}
	if cfg.Reinforcement.MaxRecentIntents < 0 {
		return errors.New("reinforcement.max_recent_intents must be >= 0")
	}
	if cfg.Cache.AnalyticsMaxCost < 1 {
		return errors.New("cache.analytics_max_cost must be >= 1")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
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
