package reinforce

import (
	"log/slog"
	"sync"
)

// Manager owns one Session behind a mutex. Config changes apply from the
// very next enrichment.
type Manager struct {
	mu      sync.Mutex
	session Session
	source  IntentSource
	logger  *slog.Logger
}

// NewManager creates a Manager at turn 0. An invalid cfg falls back to
// DefaultConfig. source may be nil.
func NewManager(source IntentSource, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reinforce")
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid reinforcement config, using defaults", "error", err)
		cfg = DefaultConfig()
	}
	return &Manager{
		session: NewSession(cfg),
		source:  source,
		logger:  logger,
	}
}

// EnrichResponseWithContext counts one turn and possibly appends a reminder.
// It never fails.
func (m *Manager) EnrichResponseWithContext(content string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Enrich(&m.session, m.source, content, m.logger)
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Config
}

// UpdateConfig merges a partial config into the current one.
func (m *Manager) UpdateConfig(u ConfigUpdate) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged, err := m.session.Config.Merge(u)
	if err != nil {
		return m.session.Config, err
	}
	m.session.Config = merged
	return merged, nil
}

// GetCurrentTurn returns the number of turns counted since the last reset.
func (m *Manager) GetCurrentTurn() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Turn
}

// IncrementTurn advances the counter without enriching anything.
func (m *Manager) IncrementTurn() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Turn++
	return m.session.Turn
}

// ResetTurnCounter sets the counter back to 0.
func (m *Manager) ResetTurnCounter() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Turn = 0
}
