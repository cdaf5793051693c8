// Package reinforce implements context reinforcement: a turn-counter and
// token-estimate state machine that decides when to append a reminder of
// the objective, the key principles and the most recent active intents to
// outgoing text.
package reinforce

import (
	"errors"
	"fmt"
)

// Default configuration values.
const (
	DefaultTurnInterval     = 5
	DefaultTokenThreshold   = 3000
	DefaultMaxRecentIntents = 3
)

// ErrInvalidConfig is returned by UpdateConfig for out-of-range values.
var ErrInvalidConfig = errors.New("invalid reinforcement config")

// Config controls when and how reminders are injected.
type Config struct {
	TurnInterval                 int  `json:"turnInterval" yaml:"turn_interval"`
	TokenThreshold               int  `json:"tokenThreshold" yaml:"token_threshold"`
	IncludeKnowledgeGraphContext bool `json:"includeKnowledgeGraphContext" yaml:"include_knowledge_graph_context"`
	MaxRecentIntents             int  `json:"maxRecentIntents" yaml:"max_recent_intents"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		TurnInterval:                 DefaultTurnInterval,
		TokenThreshold:               DefaultTokenThreshold,
		IncludeKnowledgeGraphContext: true,
		MaxRecentIntents:             DefaultMaxRecentIntents,
	}
}

// Validate checks every field's range.
func (c Config) Validate() error {
	switch {
	case c.TurnInterval < 1:
		return fmt.Errorf("%w: turnInterval must be at least 1, got %d", ErrInvalidConfig, c.TurnInterval)
	case c.TokenThreshold < 1:
		return fmt.Errorf("%w: tokenThreshold must be at least 1, got %d", ErrInvalidConfig, c.TokenThreshold)
	case c.MaxRecentIntents < 0:
		return fmt.Errorf("%w: maxRecentIntents must not be negative, got %d", ErrInvalidConfig, c.MaxRecentIntents)
	}
	return nil
}

// ConfigUpdate is a partial config. Nil fields keep their current value.
type ConfigUpdate struct {
	TurnInterval                 *int
	TokenThreshold               *int
	IncludeKnowledgeGraphContext *bool
	MaxRecentIntents             *int
}

// Merge returns c with u applied, or an error if the result is invalid.
func (c Config) Merge(u ConfigUpdate) (Config, error) {
	if u.TurnInterval != nil {
		c.TurnInterval = *u.TurnInterval
	}
	if u.TokenThreshold != nil {
		c.TokenThreshold = *u.TokenThreshold
	}
	if u.IncludeKnowledgeGraphContext != nil {
		c.IncludeKnowledgeGraphContext = *u.IncludeKnowledgeGraphContext
	}
	if u.MaxRecentIntents != nil {
		c.MaxRecentIntents = *u.MaxRecentIntents
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
