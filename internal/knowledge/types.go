// Package knowledge implements the append-only knowledge graph: intents with
// their status history, tool-execution records and task-store snapshots.
//
// The graph is the audit trail the reinforcement engine reads to present
// "recent actions". Its contract is simple: identifiers are unique and
// creation-ordered, and history entries are only ever appended.
package knowledge

import (
	"errors"
	"fmt"
	"slices"
)

// SchemaVersion is written into every persisted knowledge graph document.
const SchemaVersion = "1.0.0"

// maxSnapshots bounds the todo snapshot ring kept in the document.
const maxSnapshots = 50

var (
	// ErrNotFound is returned for unknown intent identifiers.
	ErrNotFound = errors.New("intent not found")
	// ErrInvalid is returned for malformed input and illegal transitions.
	ErrInvalid = errors.New("invalid input")
)

// --- Intent status enum ---

// IntentStatus is the lifecycle state of an intent.
type IntentStatus string

const (
	StatusPlanned   IntentStatus = "planned"
	StatusExecuting IntentStatus = "executing"
	StatusCompleted IntentStatus = "completed"
	StatusFailed    IntentStatus = "failed"
)

// transitions lists the statuses reachable from each status.
// completed and failed are terminal.
var transitions = map[IntentStatus][]IntentStatus{
	StatusPlanned:   {StatusExecuting, StatusCompleted, StatusFailed},
	StatusExecuting: {StatusCompleted, StatusFailed},
	StatusCompleted: nil,
	StatusFailed:    nil,
}

// ValidateStatus returns an error if the status is not recognized.
func ValidateStatus(s IntentStatus) error {
	if _, ok := transitions[s]; !ok {
		return fmt.Errorf("%w: invalid intent status %q: must be one of: planned, executing, completed, failed", ErrInvalid, s)
	}
	return nil
}

// CanTransition reports whether an intent may move from s to next.
func (s IntentStatus) CanTransition(next IntentStatus) bool {
	return slices.Contains(transitions[s], next)
}

// IsActive reports whether the status counts as active (planned or executing).
func (s IntentStatus) IsActive() bool {
	return s == StatusPlanned || s == StatusExecuting
}

// --- Priority ---

// Priority ranks an intent. Uses the same vocabulary as tasks.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var validPriorities = map[Priority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

// ValidatePriority returns an error if the priority is not recognized.
func ValidatePriority(p Priority) error {
	if !validPriorities[p] {
		return fmt.Errorf("%w: invalid priority %q: must be one of: low, medium, high, critical", ErrInvalid, p)
	}
	return nil
}

// --- Core data structures ---

// Transition is one entry of an intent's status history.
type Transition struct {
	Status IntentStatus `json:"status"`
	At     string       `json:"at"`
}

// Intent is a tracked goal in the knowledge graph.
type Intent struct {
	ID             string       `json:"id"`
	Sequence       int64        `json:"sequence"`
	Description    string       `json:"description"`
	Goals          []string     `json:"goals"`
	Priority       Priority     `json:"priority"`
	Status         IntentStatus `json:"status"`
	History        []Transition `json:"history"`
	ToolExecutions []string     `json:"toolExecutions"`
	CreatedAt      string       `json:"createdAt"`
	UpdatedAt      string       `json:"updatedAt"`
}

// clone returns a deep copy so callers never alias graph-owned slices.
func (i Intent) clone() Intent {
	i.Goals = slices.Clone(i.Goals)
	i.History = slices.Clone(i.History)
	i.ToolExecutions = slices.Clone(i.ToolExecutions)
	return i
}

// ToolExecution records one tool call, optionally linked to an intent.
type ToolExecution struct {
	ID            string         `json:"id"`
	IntentID      string         `json:"intentId,omitempty"`
	ToolName      string         `json:"toolName"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Result        string         `json:"result,omitempty"`
	Success       bool           `json:"success"`
	TasksCreated  []string       `json:"tasksCreated,omitempty"`
	TasksModified []string       `json:"tasksModified,omitempty"`
	ExecutedAt    string         `json:"executedAt"`
}

func (e ToolExecution) clone() ToolExecution {
	e.TasksCreated = slices.Clone(e.TasksCreated)
	e.TasksModified = slices.Clone(e.TasksModified)
	if e.Parameters != nil {
		e.Parameters = deepCopyValue(e.Parameters).(map[string]any)
	}
	return e
}

// deepCopyValue copies the JSON-shaped values found in tool parameters.
// Other values are returned as is.
func deepCopyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = deepCopyValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = deepCopyValue(val)
		}
		return out
	case []string:
		return slices.Clone(x)
	default:
		return v
	}
}

// TodoSnapshot is a point-in-time summary of the task store.
type TodoSnapshot struct {
	TakenAt              string         `json:"takenAt"`
	TotalTasks           int            `json:"totalTasks"`
	ByStatus             map[string]int `json:"byStatus"`
	CompletionPercentage float64        `json:"completionPercentage"`
}

// Analytics summarizes the graph. Always recomputed, never trusted from disk.
type Analytics struct {
	TotalIntents             int    `json:"totalIntents"`
	ActiveIntents            int    `json:"activeIntents"`
	CompletedIntents         int    `json:"completedIntents"`
	FailedIntents            int    `json:"failedIntents"`
	TotalToolExecutions      int    `json:"totalToolExecutions"`
	SuccessfulToolExecutions int    `json:"successfulToolExecutions"`
	LastUpdated              string `json:"lastUpdated"`
}

// Graph is the root document, persisted as knowledge-graph.json.
type Graph struct {
	Version        string          `json:"version"`
	Intents        []Intent        `json:"intents"`
	ToolExecutions []ToolExecution `json:"toolExecutions"`
	TodoSnapshots  []TodoSnapshot  `json:"todoSnapshots"`
	Analytics      Analytics       `json:"analytics"`
	NextSequence   int64           `json:"nextSequence"`
}

// NewGraph returns an empty graph document.
func NewGraph() *Graph {
	return &Graph{
		Version:        SchemaVersion,
		Intents:        []Intent{},
		ToolExecutions: []ToolExecution{},
		TodoSnapshots:  []TodoSnapshot{},
		NextSequence:   1,
	}
}

// clone deep-copies the whole document.
func (g *Graph) clone() *Graph {
	out := &Graph{
		Version:        g.Version,
		Intents:        make([]Intent, len(g.Intents)),
		ToolExecutions: make([]ToolExecution, len(g.ToolExecutions)),
		TodoSnapshots:  make([]TodoSnapshot, len(g.TodoSnapshots)),
		Analytics:      g.Analytics,
		NextSequence:   g.NextSequence,
	}
	for i, in := range g.Intents {
		out.Intents[i] = in.clone()
	}
	for i, e := range g.ToolExecutions {
		out.ToolExecutions[i] = e.clone()
	}
	for i, s := range g.TodoSnapshots {
		byStatus := make(map[string]int, len(s.ByStatus))
		for k, v := range s.ByStatus {
			byStatus[k] = v
		}
		s.ByStatus = byStatus
		out.TodoSnapshots[i] = s
	}
	return out
}

// computeAnalytics derives the analytics block from the graph contents.
func (g *Graph) computeAnalytics(now string) Analytics {
	a := Analytics{
		TotalIntents:        len(g.Intents),
		TotalToolExecutions: len(g.ToolExecutions),
		LastUpdated:         now,
	}
	for _, in := range g.Intents {
		switch {
		case in.Status.IsActive():
			a.ActiveIntents++
		case in.Status == StatusCompleted:
			a.CompletedIntents++
		case in.Status == StatusFailed:
			a.FailedIntents++
		}
	}
	for _, e := range g.ToolExecutions {
		if e.Success {
			a.SuccessfulToolExecutions++
		}
	}
	return a
}
