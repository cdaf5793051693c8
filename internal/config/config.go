// Package config defines the server configuration and its loading
// hierarchy: defaults < YAML file < TASKGRAPH_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the whole server configuration.
type Config struct {
	Logging       Logging       `yaml:"logging"`
	Storage       Storage       `yaml:"storage"`
	Reinforcement Reinforcement `yaml:"reinforcement"`
	Cache         Cache         `yaml:"cache"`
}

// Logging controls the slog handler.
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Storage locates persisted state.
type Storage struct {
	// ProjectRoot overrides project discovery when set.
	ProjectRoot string `yaml:"project_root"`
	// DataDir holds the activity journal database.
	DataDir string `yaml:"data_dir"`
	// FlushDelay is the write-back batching window for the JSON documents.
	FlushDelay time.Duration `yaml:"flush_delay"`
	// Journal enables the SQLite activity journal.
	Journal bool `yaml:"journal"`
}

// Reinforcement holds the context-reinforcement defaults for new sessions.
type Reinforcement struct {
	TurnInterval                 int  `yaml:"turn_interval"`
	TokenThreshold               int  `yaml:"token_threshold"`
	IncludeKnowledgeGraphContext bool `yaml:"include_knowledge_graph_context"`
	MaxRecentIntents             int  `yaml:"max_recent_intents"`
}

// Cache sizes in-process caches.
type Cache struct {
	AnalyticsMaxCost int64 `yaml:"analytics_max_cost"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Storage: Storage{
			DataDir:    DefaultDataDir(),
			FlushDelay: 120 * time.Millisecond,
			Journal:    true,
		},
		Reinforcement: Reinforcement{
			TurnInterval:                 5,
			TokenThreshold:               3000,
			IncludeKnowledgeGraphContext: true,
			MaxRecentIntents:             3,
		},
		Cache: Cache{
			AnalyticsMaxCost: 1 << 20,
		},
	}
}

// DefaultDataDir returns $XDG_DATA_HOME/taskgraph, falling back to
// ~/.local/share/taskgraph. It must not be named .taskgraph: that name marks
// a project root.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskgraph")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "taskgraph")
}
