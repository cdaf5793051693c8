package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Diagnostics shared with callers that match on message text.
const (
	MsgInvalidInput      = "Invalid input"
	MsgInvalidStatus     = "Invalid status"
	MsgInvalidPriority   = "Invalid priority"
	MsgInvalidTransition = "Invalid status transition"
	MsgProgressTooHigh   = "Number must be less than or equal to 100"
	MsgProgressTooLow    = "Number must be greater than or equal to 0"
	MsgExpectedInteger   = "Expected integer, received float"
	MsgNothingToUpdate   = "Invalid input: no fields to update"
	statusChoices        = "pending, in_progress, completed, blocked, cancelled"
	priorityChoices      = "low, medium, high, critical"
	defaultUpdateReason  = "Task updated"
	defaultBulkReason    = "Bulk update"
)

// ErrNotFound is returned for unknown task identifiers.
var ErrNotFound = errors.New("task not found")

// Violation names one broken rule on one field.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError is the structured failure of a validator. It is always
// produced before any state change.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Field == "" {
			parts = append(parts, v.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (at %s)", v.Message, v.Field))
	}
	return strings.Join(parts, "; ")
}

// violations accumulates rule failures for one validation pass.
type violations []Violation

func (vs *violations) add(field, rule, msg string) {
	*vs = append(*vs, Violation{Field: field, Rule: rule, Message: msg})
}

// err returns nil when nothing was violated.
func (vs violations) err() error {
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}

// --- Operation inputs ---

// CreateInput is the validated payload of create_task.
type CreateInput struct {
	Title       string
	Description string
	Priority    Priority
	Category    string
	Tags        []string
}

// TaskUpdate is the validated field subset of update_task. Nil pointers
// leave the field untouched.
type TaskUpdate struct {
	Title              *string
	Description        *string
	Status             *Status
	Priority           *Priority
	Category           *string
	Tags               []string
	SetTags            bool
	ProgressPercentage *int
	Note               string
}

// IsEmpty reports whether the update would change nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil &&
		u.Priority == nil && u.Category == nil && !u.SetTags &&
		u.ProgressPercentage == nil && u.Note == ""
}

// BulkEntry is one element of a bulk_update batch.
type BulkEntry struct {
	TaskID string
	Update TaskUpdate
}

// --- Validators ---

// ValidateCreate parses and validates a create_task payload.
func ValidateCreate(raw map[string]any) (CreateInput, error) {
	var vs violations
	in := CreateInput{
		Title:       optString(raw, "title", "title", &vs),
		Description: optString(raw, "description", "description", &vs),
		Priority:    Priority(optString(raw, "priority", "priority", &vs)),
		Category:    optString(raw, "category", "category", &vs),
		Tags:        optStrings(raw, "tags", "tags", &vs),
	}
	if _, ok := raw["title"]; !ok {
		vs.add("title", "required", MsgInvalidInput+": Required")
	}
	if len(vs) > 0 {
		return CreateInput{}, vs.err()
	}
	if err := in.Validate(); err != nil {
		return CreateInput{}, err
	}
	return in, nil
}

// Validate checks a CreateInput built by Go callers.
func (in CreateInput) Validate() error {
	var vs violations
	if strings.TrimSpace(in.Title) == "" {
		vs.add("title", "non_empty", MsgInvalidInput+": title must not be empty")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		vs.add("priority", "enum", fmt.Sprintf("%s %q: must be one of: %s", MsgInvalidPriority, in.Priority, priorityChoices))
	}
	return vs.err()
}

// ValidateUpdate parses and validates the field subset of an update.
// Unknown keys are ignored.
func ValidateUpdate(raw map[string]any) (TaskUpdate, error) {
	return validateUpdateAt(raw, "")
}

func validateUpdateAt(raw map[string]any, prefix string) (TaskUpdate, error) {
	var vs violations
	var u TaskUpdate

	if v, ok := raw["title"]; ok {
		s, isStr := v.(string)
		switch {
		case !isStr:
			vs.add(prefix+"title", "type", MsgInvalidInput+": expected string")
		case strings.TrimSpace(s) == "":
			vs.add(prefix+"title", "non_empty", MsgInvalidInput+": title must not be empty")
		default:
			u.Title = &s
		}
	}
	if _, ok := raw["description"]; ok {
		s := optString(raw, "description", prefix+"description", &vs)
		u.Description = &s
	}
	if _, ok := raw["category"]; ok {
		s := optString(raw, "category", prefix+"category", &vs)
		u.Category = &s
	}
	if v, ok := raw["status"]; ok {
		s, isStr := v.(string)
		st := Status(s)
		switch {
		case !isStr:
			vs.add(prefix+"status", "type", MsgInvalidStatus+": expected string")
		case !st.Valid():
			vs.add(prefix+"status", "enum", fmt.Sprintf("%s %q: must be one of: %s", MsgInvalidStatus, s, statusChoices))
		default:
			u.Status = &st
		}
	}
	if v, ok := raw["priority"]; ok {
		s, isStr := v.(string)
		p := Priority(s)
		switch {
		case !isStr:
			vs.add(prefix+"priority", "type", MsgInvalidPriority+": expected string")
		case !p.Valid():
			vs.add(prefix+"priority", "enum", fmt.Sprintf("%s %q: must be one of: %s", MsgInvalidPriority, s, priorityChoices))
		default:
			u.Priority = &p
		}
	}
	if _, ok := raw["tags"]; ok {
		u.Tags = optStrings(raw, "tags", prefix+"tags", &vs)
		u.SetTags = true
	}
	if v, ok := raw["progressPercentage"]; ok {
		if p, ok := validateProgress(v, prefix+"progressPercentage", &vs); ok {
			u.ProgressPercentage = &p
		}
	}
	if _, ok := raw["note"]; ok {
		u.Note = strings.TrimSpace(optString(raw, "note", prefix+"note", &vs))
	}

	if len(vs) > 0 {
		return TaskUpdate{}, vs.err()
	}
	if u.IsEmpty() {
		vs.add(strings.TrimSuffix(prefix, "."), "non_empty", MsgNothingToUpdate)
		return TaskUpdate{}, vs.err()
	}
	return u, nil
}

// ValidateBulk parses a bulk_update payload. The payload MUST be an ordered
// sequence of objects, each carrying its own taskId; any other shape is
// rejected before a single entry is looked at.
func ValidateBulk(raw any) ([]BulkEntry, error) {
	var vs violations

	items, ok := asSlice(raw)
	if !ok {
		vs.add("updates", "type", fmt.Sprintf("%s: expected array, received %s", MsgInvalidInput, typeName(raw)))
		return nil, vs.err()
	}
	if len(items) == 0 {
		vs.add("updates", "non_empty", MsgInvalidInput+": updates must contain at least one entry")
		return nil, vs.err()
	}

	entries := make([]BulkEntry, 0, len(items))
	for i, item := range items {
		prefix := fmt.Sprintf("updates[%d].", i)
		obj, ok := item.(map[string]any)
		if !ok {
			vs.add(strings.TrimSuffix(prefix, "."), "type", fmt.Sprintf("%s: expected object, received %s", MsgInvalidInput, typeName(item)))
			continue
		}

		id, _ := obj["taskId"].(string)
		if strings.TrimSpace(id) == "" {
			vs.add(prefix+"taskId", "required", MsgInvalidInput+": Required")
			continue
		}

		u, err := validateUpdateAt(obj, prefix)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				vs = append(vs, ve.Violations...)
			}
			continue
		}
		entries = append(entries, BulkEntry{TaskID: id, Update: u})
	}

	if len(vs) > 0 {
		return nil, vs.err()
	}
	return entries, nil
}

// --- Field helpers ---

// validateProgress accepts any JSON-ish number that is an integer in [0,100].
func validateProgress(v any, field string, vs *violations) (int, bool) {
	f, ok := asNumber(v)
	if !ok {
		vs.add(field, "type", fmt.Sprintf("%s: expected number, received %s", MsgInvalidInput, typeName(v)))
		return 0, false
	}
	if f != math.Trunc(f) {
		vs.add(field, "integer", MsgExpectedInteger)
		return 0, false
	}
	if f > 100 {
		vs.add(field, "max", MsgProgressTooHigh)
		return 0, false
	}
	if f < 0 {
		vs.add(field, "min", MsgProgressTooLow)
		return 0, false
	}
	return int(f), true
}

func optString(raw map[string]any, key, field string, vs *violations) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		vs.add(field, "type", fmt.Sprintf("%s: expected string, received %s", MsgInvalidInput, typeName(v)))
		return ""
	}
	return s
}

func optStrings(raw map[string]any, key, field string, vs *violations) []string {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	if ss, ok := v.([]string); ok {
		return normalizeTags(ss)
	}
	items, ok := v.([]any)
	if !ok {
		vs.add(field, "type", fmt.Sprintf("%s: expected array, received %s", MsgInvalidInput, typeName(v)))
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			vs.add(fmt.Sprintf("%s[%d]", field, i), "type", MsgInvalidInput+": expected string")
			continue
		}
		out = append(out, s)
	}
	return normalizeTags(out)
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// typeName describes a decoded JSON value the way error messages expect.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case map[string]any:
		return "object"
	case []any, []map[string]any, []string:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
