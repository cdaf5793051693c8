package knowledge

import (
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HendryAvila/taskgraph/internal/persist"
)

// Event kinds delivered to an Observer.
const (
	EventIntentCreated = "intent_created"
	EventIntentStatus  = "intent_status"
	EventToolExecution = "tool_execution"
	EventTodoSnapshot  = "todo_snapshot"
)

// Event describes one append to the graph.
type Event struct {
	Kind      string
	SubjectID string
	Title     string
	Content   string
	At        string
}

// Observer is notified after every append to the graph.
// It is optional; a nil observer is ignored.
type Observer interface {
	OnGraphEvent(e Event)
}

// Options configures a Manager.
type Options struct {
	// ProjectRoot locates .taskgraph/cache/knowledge-graph.json.
	ProjectRoot string
	// FlushDelay is the write-back batching window.
	FlushDelay time.Duration
	Logger     *slog.Logger
}

// Manager owns the knowledge graph of one project.
type Manager struct {
	mu       sync.Mutex
	graph    *Graph
	path     string
	sched    *persist.Scheduler
	observer Observer
	logger   *slog.Logger
}

// NewManager loads the project's graph (or starts an empty one) and
// prepares the batched write-back.
func NewManager(opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := GraphPath(opts.ProjectRoot)
	g, err := loadGraph(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: %w", err)
	}

	m := &Manager{
		graph:  g,
		path:   path,
		logger: logger.With("component", "knowledge"),
	}
	m.sched = persist.NewScheduler("knowledge-graph", opts.FlushDelay, m.writeBack, m.logger)
	return m, nil
}

// SetObserver injects an optional Observer (e.g. the activity journal).
func (m *Manager) SetObserver(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = obs
}

// Path returns the location of the persisted document.
func (m *Manager) Path() string { return m.path }

// CreateIntent allocates and appends a new intent in the planned state.
func (m *Manager) CreateIntent(description string, goals []string, priority Priority) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("%w: intent description is required", ErrInvalid)
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if err := ValidatePriority(priority); err != nil {
		return "", err
	}

	cleanGoals := make([]string, 0, len(goals))
	for _, g := range goals {
		if g = strings.TrimSpace(g); g != "" {
			cleanGoals = append(cleanGoals, g)
		}
	}

	id, err := newID()
	if err != nil {
		return "", err
	}

	ts := now()
	m.mu.Lock()
	intent := Intent{
		ID:             id,
		Sequence:       m.graph.NextSequence,
		Description:    description,
		Goals:          cleanGoals,
		Priority:       priority,
		Status:         StatusPlanned,
		History:        []Transition{{Status: StatusPlanned, At: ts}},
		ToolExecutions: []string{},
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	m.graph.NextSequence++
	m.graph.Intents = append(m.graph.Intents, intent)
	obs := m.observer
	m.mu.Unlock()

	m.sched.Schedule()
	notify(obs, Event{
		Kind:      EventIntentCreated,
		SubjectID: id,
		Title:     description,
		Content:   strings.Join(cleanGoals, "\n"),
		At:        ts,
	})
	return id, nil
}

// UpdateIntentStatus appends a transition to the intent's history.
func (m *Manager) UpdateIntentStatus(id string, status IntentStatus) (Intent, error) {
	if err := ValidateStatus(status); err != nil {
		return Intent{}, err
	}

	ts := now()
	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return Intent{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	current := m.graph.Intents[idx]
	if !current.Status.CanTransition(status) {
		m.mu.Unlock()
		return Intent{}, fmt.Errorf("%w: intent %s cannot move from %s to %s", ErrInvalid, id, current.Status, status)
	}

	// History is rebuilt by appension; earlier entries are never touched.
	updated := current.clone()
	updated.History = append(updated.History, Transition{Status: status, At: ts})
	updated.Status = status
	updated.UpdatedAt = ts
	m.graph.Intents[idx] = updated
	obs := m.observer
	result := updated.clone()
	m.mu.Unlock()

	m.sched.Schedule()
	notify(obs, Event{
		Kind:      EventIntentStatus,
		SubjectID: id,
		Title:     fmt.Sprintf("%s → %s", current.Status, status),
		Content:   current.Description,
		At:        ts,
	})
	return result, nil
}

// GetIntent returns a copy of a single intent.
func (m *Manager) GetIntent(id string) (Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return Intent{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.graph.Intents[idx].clone(), nil
}

// GetActiveIntents returns planned and executing intents, most recent first.
func (m *Manager) GetActiveIntents() ([]Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active []Intent
	for _, in := range m.graph.Intents {
		if in.Status.IsActive() {
			active = append(active, in.clone())
		}
	}
	slices.SortFunc(active, func(a, b Intent) int {
		return cmp.Compare(b.Sequence, a.Sequence)
	})
	return active, nil
}

// AddToolExecution appends an execution record. An empty intentID records
// an unlinked execution; an unknown one fails with ErrNotFound.
func (m *Manager) AddToolExecution(intentID string, rec ToolExecution) (string, error) {
	if strings.TrimSpace(rec.ToolName) == "" {
		return "", fmt.Errorf("%w: toolName is required", ErrInvalid)
	}

	id, err := newID()
	if err != nil {
		return "", err
	}

	ts := now()
	m.mu.Lock()
	idx := -1
	if intentID != "" {
		idx = m.indexOf(intentID)
		if idx < 0 {
			m.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrNotFound, intentID)
		}
	}

	rec = rec.clone()
	rec.ID = id
	rec.IntentID = intentID
	if rec.ExecutedAt == "" {
		rec.ExecutedAt = ts
	}
	m.graph.ToolExecutions = append(m.graph.ToolExecutions, rec)

	if idx >= 0 {
		linked := m.graph.Intents[idx].clone()
		linked.ToolExecutions = append(linked.ToolExecutions, id)
		linked.UpdatedAt = ts
		m.graph.Intents[idx] = linked
	}
	obs := m.observer
	m.mu.Unlock()

	m.sched.Schedule()

	outcome := "succeeded"
	if !rec.Success {
		outcome = "failed"
	}
	notify(obs, Event{
		Kind:      EventToolExecution,
		SubjectID: id,
		Title:     fmt.Sprintf("%s %s", rec.ToolName, outcome),
		Content:   rec.Result,
		At:        rec.ExecutedAt,
	})
	return id, nil
}

// UpdateTodoSnapshot records a point-in-time summary of the task store.
// Only the most recent snapshots are retained.
func (m *Manager) UpdateTodoSnapshot(s TodoSnapshot) error {
	if s.TakenAt == "" {
		s.TakenAt = now()
	}
	byStatus := make(map[string]int, len(s.ByStatus))
	for k, v := range s.ByStatus {
		byStatus[k] = v
	}
	s.ByStatus = byStatus

	m.mu.Lock()
	m.graph.TodoSnapshots = append(m.graph.TodoSnapshots, s)
	if over := len(m.graph.TodoSnapshots) - maxSnapshots; over > 0 {
		m.graph.TodoSnapshots = slices.Clone(m.graph.TodoSnapshots[over:])
	}
	obs := m.observer
	m.mu.Unlock()

	m.sched.Schedule()
	notify(obs, Event{
		Kind:    EventTodoSnapshot,
		Title:   fmt.Sprintf("%d tasks, %.1f%% complete", s.TotalTasks, s.CompletionPercentage),
		Content: formatStatusCounts(s.ByStatus),
		At:      s.TakenAt,
	})
	return nil
}

// LoadKnowledgeGraph returns a deep copy of the whole graph with freshly
// computed analytics.
func (m *Manager) LoadKnowledgeGraph() (*Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.graph.clone()
	out.Analytics = out.computeAnalytics(now())
	return out, nil
}

// Flush forces any pending write-back.
func (m *Manager) Flush() error {
	return m.sched.Flush()
}

// Close flushes pending changes and stops the scheduler.
func (m *Manager) Close() error {
	return m.sched.Close()
}

// writeBack is the scheduler's WriteFunc.
func (m *Manager) writeBack() error {
	m.mu.Lock()
	m.graph.Analytics = m.graph.computeAnalytics(now())
	data, err := json.MarshalIndent(m.graph, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshaling knowledge graph: %w", err)
	}
	return saveGraph(m.path, data)
}

// indexOf returns the slice index of an intent, or -1. Caller holds mu.
func (m *Manager) indexOf(id string) int {
	return slices.IndexFunc(m.graph.Intents, func(in Intent) bool { return in.ID == id })
}

// newID returns a time-ordered identifier.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	return id.String(), nil
}

// notify is a nil-safe helper; observers are called outside the lock.
func notify(obs Observer, e Event) {
	if obs == nil {
		return
	}
	obs.OnGraphEvent(e)
}

func formatStatusCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}
