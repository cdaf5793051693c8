package todo

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusPending, true},
		{StatusInProgress, StatusBlocked, true},
		{StatusBlocked, StatusCompleted, true},
		{StatusCompleted, StatusPending, true},
		{StatusCompleted, StatusBlocked, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, true},
		{StatusCancelled, StatusInProgress, false},
		{StatusCancelled, StatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantErr string
	}{
		{"minimal", map[string]any{"title": "Write docs"}, ""},
		{"full", map[string]any{
			"title": "Ship", "description": "v1", "priority": "high",
			"category": "release", "tags": []any{"b", "a", "a"},
		}, ""},
		{"missing title", map[string]any{}, "Invalid input"},
		{"blank title", map[string]any{"title": "   "}, "Invalid input"},
		{"title wrong type", map[string]any{"title": 42.0}, "expected string"},
		{"bad priority", map[string]any{"title": "x", "priority": "urgent"}, "Invalid priority"},
		{"tags wrong type", map[string]any{"title": "x", "tags": "a,b"}, "expected array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ValidateCreate(tt.raw)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if in.Title == "" {
					t.Error("title should be set")
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error should be a *ValidationError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCreate_NormalizesTags(t *testing.T) {
	in, err := ValidateCreate(map[string]any{"title": "x", "tags": []any{" ui ", "api", "ui", ""}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(in.Tags, ","); got != "api,ui" {
		t.Errorf("tags = %q, want api,ui", got)
	}
}

func TestValidateUpdate_Progress(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr string
	}{
		{"zero", 0.0, 0, ""},
		{"hundred", 100.0, 100, ""},
		{"int", 40, 40, ""},
		{"json number", json.Number("75"), 75, ""},
		{"too high", 101.0, 0, MsgProgressTooHigh},
		{"negative", -1.0, 0, MsgProgressTooLow},
		{"fraction", 12.5, 0, "integer"},
		{"string", "50", 0, "expected number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ValidateUpdate(map[string]any{"progressPercentage": tt.value})
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.ProgressPercentage == nil || *u.ProgressPercentage != tt.want {
				t.Errorf("progress = %v, want %d", u.ProgressPercentage, tt.want)
			}
		})
	}
}

func TestValidateUpdate_Status(t *testing.T) {
	if _, err := ValidateUpdate(map[string]any{"status": "done"}); err == nil || !strings.Contains(err.Error(), MsgInvalidStatus) {
		t.Errorf("error = %v, want Invalid status", err)
	}
	for _, s := range AllStatuses {
		u, err := ValidateUpdate(map[string]any{"status": string(s)})
		if err != nil {
			t.Errorf("status %s rejected: %v", s, err)
			continue
		}
		if *u.Status != s {
			t.Errorf("status = %s, want %s", *u.Status, s)
		}
	}
}

func TestValidateUpdate_RejectsEmpty(t *testing.T) {
	_, err := ValidateUpdate(map[string]any{"unknown": true})
	if err == nil || !strings.Contains(err.Error(), MsgInvalidInput) {
		t.Errorf("error = %v, want Invalid input", err)
	}
}

func TestValidateBulk_Shape(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"single object", map[string]any{"taskId": "a", "status": "completed"}},
		{"string", "a,b"},
		{"nil", nil},
		{"empty array", []any{}},
		{"array of strings", []any{"a"}},
		{"missing taskId", []any{map[string]any{"status": "completed"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateBulk(tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), MsgInvalidInput) {
				t.Errorf("error %q should contain %q", err, MsgInvalidInput)
			}
		})
	}
}

func TestValidateBulk_ReportsEveryBadEntry(t *testing.T) {
	_, err := ValidateBulk([]any{
		map[string]any{"taskId": "a", "status": "completed"},
		map[string]any{"taskId": "b", "status": "nope"},
		map[string]any{"taskId": "c", "progressPercentage": 150.0},
	})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(ve.Violations) != 2 {
		t.Fatalf("violations = %d, want 2: %v", len(ve.Violations), ve.Violations)
	}
	if ve.Violations[0].Field != "updates[1].status" {
		t.Errorf("first field = %q", ve.Violations[0].Field)
	}
	if ve.Violations[1].Field != "updates[2].progressPercentage" {
		t.Errorf("second field = %q", ve.Violations[1].Field)
	}
}

func TestValidateBulk_AcceptsSequence(t *testing.T) {
	entries, err := ValidateBulk([]any{
		map[string]any{"taskId": "a", "status": "completed"},
		map[string]any{"taskId": "b", "progressPercentage": 50.0, "note": "halfway"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].TaskID != "a" || entries[1].TaskID != "b" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[1].Update.Note != "halfway" {
		t.Errorf("note = %q", entries[1].Update.Note)
	}
}

func TestValidateQuery(t *testing.T) {
	q, err := ValidateQuery(map[string]any{
		"status":    []any{"pending", "in_progress"},
		"priority":  "high",
		"sortBy":    "priority",
		"sortOrder": "desc",
		"limit":     5.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.Filter.Status) != 2 || len(q.Filter.Priority) != 1 {
		t.Errorf("filter = %+v", q.Filter)
	}
	if q.SortBy != SortPriority || q.SortOrder != SortDesc || q.Filter.Limit != 5 {
		t.Errorf("query = %+v", q)
	}

	if _, err := ValidateQuery(map[string]any{"sortBy": "color"}); err == nil {
		t.Error("unknown sort key should be rejected")
	}
	if _, err := ValidateQuery(map[string]any{"status": "sleeping"}); err == nil {
		t.Error("unknown status should be rejected")
	}

	q, err = ValidateQuery(map[string]any{})
	if err != nil {
		t.Fatalf("empty query: %v", err)
	}
	if q.SortBy != SortCreatedAt || q.SortOrder != SortAsc {
		t.Errorf("defaults = %+v", q)
	}

	q, err = ValidateQuery(map[string]any{"limit": 1e19})
	if err != nil {
		t.Fatalf("huge limit: %v", err)
	}
	if q.Filter.Limit != math.MaxInt32 {
		t.Errorf("huge limit = %d, want clamped to %d", q.Filter.Limit, math.MaxInt32)
	}
	if _, err := ValidateQuery(map[string]any{"limit": -1.0}); err == nil {
		t.Error("negative limit should be rejected")
	}
}
