package tools

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
)

func createIntent(t *testing.T, km *knowledge.Manager, desc string) string {
	t.Helper()
	result := call(t, NewCreateIntentTool(km).Handle, map[string]any{"description": desc})
	if isErrorResult(result) {
		t.Fatalf("create_intent failed: %s", getResultText(result))
	}
	return extractID(t, getResultText(result))
}

func TestCreateIntentTool_Handle_Success(t *testing.T) {
	_, km, _ := setupTestProject(t)
	tool := NewCreateIntentTool(km)

	result := call(t, tool.Handle, map[string]any{
		"description": "Migrate storage",
		"goals":       []any{"export data", " ", "switch reads"},
		"priority":    "high",
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"Intent Created", "Migrate storage", "high", "planned", "- export data", "- switch reads"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}

	intent, err := km.GetIntent(extractID(t, text))
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if len(intent.Goals) != 2 {
		t.Errorf("goals = %v, blank goals should be dropped", intent.Goals)
	}
}

func TestCreateIntentTool_Handle_Invalid(t *testing.T) {
	_, km, _ := setupTestProject(t)
	tool := NewCreateIntentTool(km)

	if result := call(t, tool.Handle, map[string]any{"description": ""}); !isErrorResult(result) {
		t.Error("should return error when description is missing")
	}
	if result := call(t, tool.Handle, map[string]any{"description": "x", "priority": "urgent"}); !isErrorResult(result) {
		t.Error("should return error for unknown priority")
	}
}

func TestUpdateIntentStatusTool_Handle(t *testing.T) {
	_, km, _ := setupTestProject(t)
	tool := NewUpdateIntentStatusTool(km)
	id := createIntent(t, km, "Migrate storage")

	result := call(t, tool.Handle, map[string]any{"intentId": id, "status": "executing"})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "- planned at") || !strings.Contains(text, "- executing at") {
		t.Errorf("history missing:\n%s", text)
	}

	call(t, tool.Handle, map[string]any{"intentId": id, "status": "completed"})

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"terminal state", map[string]any{"intentId": id, "status": "executing"}, "cannot move from completed"},
		{"unknown status", map[string]any{"intentId": id, "status": "paused"}, "invalid intent status"},
		{"unknown intent", map[string]any{"intentId": "missing", "status": "executing"}, "intent not found"},
		{"missing id", map[string]any{"status": "executing"}, "'intentId' is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, tool.Handle, tt.args)
			if !isErrorResult(result) {
				t.Fatalf("expected error, got: %s", getResultText(result))
			}
			if text := getResultText(result); !strings.Contains(text, tt.want) {
				t.Errorf("error %q should contain %q", text, tt.want)
			}
		})
	}
}

func TestActiveIntentsTool_Handle(t *testing.T) {
	_, km, _ := setupTestProject(t)
	tool := NewActiveIntentsTool(km)

	text := getResultText(call(t, tool.Handle, nil))
	if !strings.Contains(text, "No active intents") {
		t.Errorf("empty graph:\n%s", text)
	}

	first := createIntent(t, km, "First goal")
	createIntent(t, km, "Second goal")
	if _, err := km.UpdateIntentStatus(first, knowledge.StatusFailed); err != nil {
		t.Fatal(err)
	}
	createIntent(t, km, "Third goal")

	text = getResultText(call(t, tool.Handle, nil))
	if !strings.Contains(text, "Active Intents (2)") {
		t.Errorf("expected 2 active intents:\n%s", text)
	}
	if strings.Contains(text, "First goal") {
		t.Error("failed intent should not be listed")
	}
	if strings.Index(text, "Third goal") > strings.Index(text, "Second goal") {
		t.Error("most recent intent should come first")
	}
}

func TestToolExecutionTool_Handle(t *testing.T) {
	_, km, _ := setupTestProject(t)
	tool := NewToolExecutionTool(km)
	intentID := createIntent(t, km, "Migrate storage")

	result := call(t, tool.Handle, map[string]any{
		"toolName":   "run_migrations",
		"intentId":   intentID,
		"parameters": map[string]any{"dryRun": true},
		"result":     "3 migrations applied",
		"success":    true,
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	intent, _ := km.GetIntent(intentID)
	if len(intent.ToolExecutions) != 1 {
		t.Errorf("linked executions = %d, want 1", len(intent.ToolExecutions))
	}

	result = call(t, tool.Handle, map[string]any{"toolName": "lint", "success": false})
	if isErrorResult(result) {
		t.Fatalf("unlinked execution failed: %s", getResultText(result))
	}
	if text := getResultText(result); !strings.Contains(text, "_unlinked_") || !strings.Contains(text, "Success**: false") {
		t.Errorf("unexpected response:\n%s", text)
	}

	g, _ := km.LoadKnowledgeGraph()
	if g.Analytics.TotalToolExecutions != 2 || g.Analytics.SuccessfulToolExecutions != 1 {
		t.Errorf("analytics = %+v", g.Analytics)
	}
}

func TestToolExecutionTool_Handle_Invalid(t *testing.T) {
	_, km, _ := setupTestProject(t)
	tool := NewToolExecutionTool(km)

	if result := call(t, tool.Handle, map[string]any{"toolName": ""}); !isErrorResult(result) {
		t.Error("should return error when toolName is missing")
	}
	if result := call(t, tool.Handle, map[string]any{"toolName": "x", "intentId": "missing"}); !isErrorResult(result) {
		t.Error("should return error for unknown intent")
	}
	if result := call(t, tool.Handle, map[string]any{"toolName": "x", "parameters": "flag"}); !isErrorResult(result) {
		t.Error("should return error for non-object parameters")
	}
}

func TestKnowledgeGraphTool_Handle(t *testing.T) {
	_, km, tm := setupTestProject(t)
	tool := NewKnowledgeGraphTool(km)
	intentID := createIntent(t, km, "Migrate storage")
	createTask(t, NewTodoTool(tm), "Export data")

	text := getResultText(call(t, tool.Handle, nil))
	for _, want := range []string{"Knowledge Graph", "Intents**: 1 (active 1", "Tool Executions**: 1", "create_task"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}

	text = getResultText(call(t, tool.Handle, map[string]any{"format": "json"}))
	var g knowledge.Graph
	if err := json.Unmarshal([]byte(text), &g); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}
	if g.Version != knowledge.SchemaVersion || len(g.Intents) != 1 || g.Intents[0].ID != intentID {
		t.Errorf("graph = %+v", g)
	}

	if result := call(t, tool.Handle, map[string]any{"format": "xml"}); !isErrorResult(result) {
		t.Error("unknown format should be rejected")
	}
}
