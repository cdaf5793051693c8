// Package todo implements the validated task store: the Task entity and its
// transition table, explicit per-operation validators, the mutation/query
// Manager and its batched JSON persistence.
//
// Every mutation is validated as a unit before any field is written, so a
// rejected call leaves the store exactly as it was.
package todo

import (
	"slices"
	"strings"
)

// SchemaVersion is written into every persisted task document.
const SchemaVersion = "1.0.0"

// --- Status enum ---

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists statuses in display order.
var AllStatuses = []Status{StatusPending, StatusInProgress, StatusBlocked, StatusCompleted, StatusCancelled}

// statusTransitions lists the statuses reachable from each status.
// Staying on the current status is always allowed.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusBlocked, StatusCancelled},
	StatusInProgress: {StatusPending, StatusCompleted, StatusBlocked, StatusCancelled},
	StatusBlocked:    {StatusPending, StatusInProgress, StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusPending, StatusInProgress},
	StatusCancelled:  {StatusPending},
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether a task may move from s to next.
func (s Status) CanTransition(next Status) bool {
	return s == next || slices.Contains(statusTransitions[s], next)
}

// --- Priority enum ---

// Priority ranks a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// AllPriorities lists priorities from most to least urgent.
var AllPriorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// priorityRank orders priorities for sorting; higher is more urgent.
var priorityRank = map[Priority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

// Valid reports whether p is one of the four known priorities.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// --- Core data structures ---

// Note is a timestamped free-text entry on a task. Notes are append-only.
type Note struct {
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// Task is a unit of trackable work.
type Task struct {
	ID                 string   `json:"id"`
	Sequence           int64    `json:"sequence"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Status             Status   `json:"status"`
	Priority           Priority `json:"priority"`
	Category           string   `json:"category,omitempty"`
	Tags               []string `json:"tags"`
	ProgressPercentage int      `json:"progressPercentage"`
	Notes              []Note   `json:"notes"`
	CreatedAt          string   `json:"createdAt"`
	UpdatedAt          string   `json:"updatedAt"`
	CompletedAt        string   `json:"completedAt,omitempty"`
	Version            int      `json:"version"`
}

// clone returns a deep copy so callers never alias store-owned slices.
func (t Task) clone() Task {
	t.Tags = slices.Clone(t.Tags)
	t.Notes = slices.Clone(t.Notes)
	return t
}

// Metadata is the store-level header of the task document.
type Metadata struct {
	LastModified string `json:"lastModified"`
	TotalTasks   int    `json:"totalTasks"`
	NextSequence int64  `json:"nextSequence"`
}

// Data is the root document, persisted as todo-data.json.
type Data struct {
	Version  string          `json:"version"`
	Metadata Metadata        `json:"metadata"`
	Tasks    map[string]Task `json:"tasks"`
}

// NewData returns an empty task document.
func NewData() *Data {
	return &Data{
		Version:  SchemaVersion,
		Metadata: Metadata{NextSequence: 1},
		Tasks:    map[string]Task{},
	}
}

// normalizeTags trims, drops empties and deduplicates tags.
// Tags are a set, so the result is sorted for stable output.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
