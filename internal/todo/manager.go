package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
	"github.com/HendryAvila/taskgraph/internal/persist"
)

// defaultAnalyticsCacheCost bounds the analytics cache when Options leaves it unset.
const defaultAnalyticsCacheCost = 1 << 20

// GraphRecorder is the slice of the knowledge graph the task store writes to.
// *knowledge.Manager satisfies it.
type GraphRecorder interface {
	GetActiveIntents() ([]knowledge.Intent, error)
	AddToolExecution(intentID string, rec knowledge.ToolExecution) (string, error)
	UpdateTodoSnapshot(s knowledge.TodoSnapshot) error
}

// Options configures a Manager.
type Options struct {
	// ProjectRoot locates .taskgraph/cache/todo-data.json.
	ProjectRoot string
	// FlushDelay is the write-back batching window.
	FlushDelay time.Duration
	// Graph receives one execution record per accepted mutation. Optional.
	Graph  GraphRecorder
	Logger *slog.Logger
	// AnalyticsCacheMaxCost bounds the analytics cache in bytes.
	AnalyticsCacheMaxCost int64
}

// UpdateResult is the outcome of a single-task update.
type UpdateResult struct {
	Task    Task
	Reason  string
	Changes []string
}

// BulkResult is the outcome of a bulk update.
type BulkResult struct {
	Tasks   []Task
	Reason  string
	Applied int
}

// Manager is the mutation and query engine over one project's task store.
type Manager struct {
	mu       sync.Mutex
	data     *Data
	path     string
	revision uint64

	sched  *persist.Scheduler
	graph  GraphRecorder
	cache  *ristretto.Cache[string, Analytics]
	logger *slog.Logger
}

// NewManager loads the project's task document (or starts an empty one).
func NewManager(opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := DataPath(opts.ProjectRoot)
	data, err := LoadData(path)
	if err != nil {
		return nil, fmt.Errorf("todo: %w", err)
	}

	maxCost := opts.AnalyticsCacheMaxCost
	if maxCost <= 0 {
		maxCost = defaultAnalyticsCacheCost
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, Analytics]{
		NumCounters: 1000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("todo: creating analytics cache: %w", err)
	}

	m := &Manager{
		data:   data,
		path:   path,
		graph:  opts.Graph,
		cache:  cache,
		logger: logger.With("component", "todo"),
	}
	m.sched = persist.NewScheduler("todo-data", opts.FlushDelay, m.writeBack, m.logger)
	return m, nil
}

// Path returns the location of the persisted document.
func (m *Manager) Path() string { return m.path }

// Revision increases on every accepted mutation.
func (m *Manager) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// CreateTask validates the input and stores a new pending task.
func (m *Manager) CreateTask(in CreateInput) (Task, error) {
	if err := in.Validate(); err != nil {
		return Task{}, err
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}

	ts := now()
	task := Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      StatusPending,
		Priority:    in.Priority,
		Category:    strings.TrimSpace(in.Category),
		Tags:        normalizeTags(in.Tags),
		Notes:       []Note{},
		CreatedAt:   ts,
		UpdatedAt:   ts,
		Version:     1,
	}

	m.mu.Lock()
	task.Sequence = m.data.Metadata.NextSequence
	m.data.Metadata.NextSequence++
	m.data.Tasks[task.ID] = task
	m.touch(ts)
	m.mu.Unlock()

	m.sched.Schedule()
	m.record("create_task",
		map[string]any{"title": task.Title, "priority": string(task.Priority)},
		fmt.Sprintf("Created task %q", task.Title),
		[]string{task.ID}, nil)
	return task.clone(), nil
}

// UpdateTask applies a field subset to one task. An empty reason records
// the default "Task updated".
func (m *Manager) UpdateTask(id string, u TaskUpdate, reason string) (UpdateResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultUpdateReason
	}
	if u.IsEmpty() {
		return UpdateResult{}, violations{{Rule: "non_empty", Message: MsgNothingToUpdate}}.err()
	}

	ts := now()
	m.mu.Lock()
	current, ok := m.data.Tasks[id]
	if !ok {
		m.mu.Unlock()
		return UpdateResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := current.clone()
	changes, vs := applyUpdate(&updated, u, ts, "")
	if len(vs) > 0 {
		m.mu.Unlock()
		return UpdateResult{}, vs.err()
	}
	m.data.Tasks[id] = updated
	m.touch(ts)
	m.mu.Unlock()

	m.sched.Schedule()
	m.record("update_task",
		map[string]any{"taskId": id, "reason": reason, "changes": changes},
		fmt.Sprintf("Updated task %q: %s", updated.Title, reason),
		nil, []string{id})
	return UpdateResult{Task: updated.clone(), Reason: reason, Changes: changes}, nil
}

// AddNote appends a timestamped note to a task.
func (m *Manager) AddNote(id, text string) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, violations{{Field: "note", Rule: "non_empty", Message: MsgInvalidInput + ": note must not be empty"}}.err()
	}
	res, err := m.UpdateTask(id, TaskUpdate{Note: text}, "Note added")
	if err != nil {
		return Task{}, err
	}
	return res.Task, nil
}

// BulkUpdate validates a raw decoded payload and applies it atomically.
func (m *Manager) BulkUpdate(raw any, reason string) (BulkResult, error) {
	entries, err := ValidateBulk(raw)
	if err != nil {
		return BulkResult{}, err
	}
	return m.BulkUpdateEntries(entries, reason)
}

// BulkUpdateEntries applies already-parsed entries atomically: every entry is
// checked against the state left by the entries before it, and nothing is
// committed unless all of them pass. An empty reason records "Bulk update".
func (m *Manager) BulkUpdateEntries(entries []BulkEntry, reason string) (BulkResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultBulkReason
	}
	if len(entries) == 0 {
		return BulkResult{}, violations{{Field: "updates", Rule: "non_empty", Message: MsgInvalidInput + ": updates must contain at least one entry"}}.err()
	}

	ts := now()
	m.mu.Lock()

	working := make(map[string]Task, len(entries))
	var order []string
	var vs violations
	var missing []string
	for i, e := range entries {
		prefix := fmt.Sprintf("updates[%d].", i)
		if e.Update.IsEmpty() {
			vs.add(strings.TrimSuffix(prefix, "."), "non_empty", MsgNothingToUpdate)
			continue
		}
		t, seen := working[e.TaskID]
		if !seen {
			stored, ok := m.data.Tasks[e.TaskID]
			if !ok {
				missing = append(missing, e.TaskID)
				continue
			}
			t = stored.clone()
			order = append(order, e.TaskID)
		}
		_, entryVs := applyUpdate(&t, e.Update, ts, prefix)
		if len(entryVs) > 0 {
			vs = append(vs, entryVs...)
			continue
		}
		working[e.TaskID] = t
	}

	if len(missing) > 0 {
		m.mu.Unlock()
		return BulkResult{}, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(missing, ", "))
	}
	if len(vs) > 0 {
		m.mu.Unlock()
		return BulkResult{}, vs.err()
	}

	out := make([]Task, 0, len(order))
	for _, id := range order {
		m.data.Tasks[id] = working[id]
		out = append(out, working[id].clone())
	}
	m.touch(ts)
	m.mu.Unlock()

	m.sched.Schedule()
	m.record("bulk_update",
		map[string]any{"count": len(entries), "reason": reason},
		fmt.Sprintf("Bulk updated %d tasks: %s", len(out), reason),
		nil, order)
	return BulkResult{Tasks: out, Reason: reason, Applied: len(entries)}, nil
}

// GetTask returns a copy of one task.
func (m *Manager) GetTask(id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.data.Tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.clone(), nil
}

// Export returns the task document as indented JSON.
func (m *Manager) Export() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling task data: %w", err)
	}
	return data, nil
}

// SyncSnapshot forwards a point-in-time summary of the store to the
// knowledge graph.
func (m *Manager) SyncSnapshot() (knowledge.TodoSnapshot, error) {
	a, err := m.GetAnalytics(AnalyticsOptions{})
	if err != nil {
		return knowledge.TodoSnapshot{}, err
	}

	byStatus := make(map[string]int, len(a.ByStatus))
	for s, n := range a.ByStatus {
		byStatus[string(s)] = n
	}
	snap := knowledge.TodoSnapshot{
		TakenAt:              now(),
		TotalTasks:           a.Total,
		ByStatus:             byStatus,
		CompletionPercentage: a.CompletionPercentage,
	}
	if m.graph == nil {
		return snap, errors.New("no knowledge graph attached")
	}
	if err := m.graph.UpdateTodoSnapshot(snap); err != nil {
		return snap, fmt.Errorf("recording snapshot: %w", err)
	}
	return snap, nil
}

// Flush forces any pending write-back.
func (m *Manager) Flush() error {
	return m.sched.Flush()
}

// Close flushes pending changes and releases the analytics cache.
func (m *Manager) Close() error {
	err := m.sched.Close()
	m.cache.Close()
	return err
}

// touch refreshes store metadata after a mutation. Caller holds mu.
func (m *Manager) touch(ts string) {
	m.data.Metadata.LastModified = ts
	m.data.Metadata.TotalTasks = len(m.data.Tasks)
	m.revision++
}

func (m *Manager) writeBack() error {
	data, err := m.Export()
	if err != nil {
		return err
	}
	return saveData(m.path, data)
}

// record appends an execution record to the knowledge graph, linked to the
// most recent executing intent. Failures are logged and never surfaced.
func (m *Manager) record(tool string, params map[string]any, result string, created, modified []string) {
	if m.graph == nil {
		return
	}

	var intentID string
	active, err := m.graph.GetActiveIntents()
	if err != nil {
		m.logger.Warn("loading active intents", "error", err)
	}
	for _, in := range active {
		if in.Status == knowledge.StatusExecuting {
			intentID = in.ID
			break
		}
	}

	_, err = m.graph.AddToolExecution(intentID, knowledge.ToolExecution{
		ToolName:      tool,
		Parameters:    params,
		Result:        result,
		Success:       true,
		TasksCreated:  created,
		TasksModified: modified,
	})
	if err != nil {
		m.logger.Warn("recording tool execution", "tool", tool, "error", err)
	}
}

// applyUpdate writes u onto t, which must be a private copy. Violations are
// reported against field names carrying prefix; on any violation t must be
// discarded by the caller.
func applyUpdate(t *Task, u TaskUpdate, ts, prefix string) ([]string, violations) {
	var vs violations
	var changes []string

	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		vs.add(prefix+"title", "non_empty", MsgInvalidInput+": title must not be empty")
	}
	if u.Priority != nil && !u.Priority.Valid() {
		vs.add(prefix+"priority", "enum", fmt.Sprintf("%s %q: must be one of: %s", MsgInvalidPriority, *u.Priority, priorityChoices))
	}
	if u.Status != nil {
		switch {
		case !u.Status.Valid():
			vs.add(prefix+"status", "enum", fmt.Sprintf("%s %q: must be one of: %s", MsgInvalidStatus, *u.Status, statusChoices))
		case !t.Status.CanTransition(*u.Status):
			vs.add(prefix+"status", "transition",
				fmt.Sprintf("%s: %s → %s", MsgInvalidTransition, t.Status, *u.Status))
		}
	}
	if p := u.ProgressPercentage; p != nil {
		switch {
		case *p > 100:
			vs.add(prefix+"progressPercentage", "max", MsgProgressTooHigh)
		case *p < 0:
			vs.add(prefix+"progressPercentage", "min", MsgProgressTooLow)
		}
	}
	if len(vs) > 0 {
		return nil, vs
	}

	if u.Title != nil {
		if title := strings.TrimSpace(*u.Title); title != t.Title {
			t.Title = title
			changes = append(changes, "title")
		}
	}
	if u.Description != nil && *u.Description != t.Description {
		t.Description = *u.Description
		changes = append(changes, "description")
	}
	if u.Category != nil {
		if c := strings.TrimSpace(*u.Category); c != t.Category {
			t.Category = c
			changes = append(changes, "category")
		}
	}
	if u.Priority != nil && *u.Priority != t.Priority {
		changes = append(changes, fmt.Sprintf("priority %s → %s", t.Priority, *u.Priority))
		t.Priority = *u.Priority
	}
	if u.SetTags {
		t.Tags = normalizeTags(u.Tags)
		changes = append(changes, "tags")
	}
	if u.Status != nil && *u.Status != t.Status {
		changes = append(changes, fmt.Sprintf("status %s → %s", t.Status, *u.Status))
		if *u.Status == StatusCompleted {
			t.CompletedAt = ts
			if u.ProgressPercentage == nil {
				t.ProgressPercentage = 100
			}
		} else if t.Status == StatusCompleted {
			t.CompletedAt = ""
		}
		t.Status = *u.Status
	}
	if p := u.ProgressPercentage; p != nil && *p != t.ProgressPercentage {
		changes = append(changes, fmt.Sprintf("progress %d%% → %d%%", t.ProgressPercentage, *p))
		t.ProgressPercentage = *p
	}
	if u.Note != "" {
		t.Notes = append(t.Notes, Note{Text: u.Note, CreatedAt: ts})
		changes = append(changes, "note added")
	}

	t.UpdatedAt = ts
	t.Version++
	return changes, nil
}
