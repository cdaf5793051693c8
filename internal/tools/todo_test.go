package tools

import (
	"os"
	"strings"
	"testing"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
	"github.com/HendryAvila/taskgraph/internal/todo"
)

func createTask(t *testing.T, tool *TodoTool, title string) string {
	t.Helper()
	result := call(t, tool.Handle, map[string]any{"operation": "create_task", "title": title})
	if isErrorResult(result) {
		t.Fatalf("create_task failed: %s", getResultText(result))
	}
	return extractID(t, getResultText(result))
}

func TestTodoTool_Definition(t *testing.T) {
	_, _, tm := setupTestProject(t)
	def := NewTodoTool(tm).Definition()
	if def.Name != "manage_todo_json" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "operation" {
		t.Errorf("required = %v, want [operation]", def.InputSchema.Required)
	}
}

func TestTodoTool_CreateTask(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)

	result := call(t, tool.Handle, map[string]any{
		"operation": "create_task",
		"title":     "Write docs",
		"priority":  "high",
		"tags":      []any{"docs", "Docs"},
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"Task Created", "Write docs", "high", "Progress**: 0%"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}

	task, err := tm.GetTask(extractID(t, text))
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status != todo.StatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}
}

func TestTodoTool_CreateTask_EmptyTitle(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)

	result := call(t, tool.Handle, map[string]any{"operation": "create_task", "title": "   "})
	if !isErrorResult(result) {
		t.Fatal("should return error for empty title")
	}
	text := getResultText(result)
	if !strings.HasPrefix(text, "JSON TODO management failed: ") || !strings.Contains(text, "Invalid input") {
		t.Errorf("unexpected error text: %s", text)
	}
}

func TestTodoTool_UpdateTask_DefaultReason(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)
	id := createTask(t, tool, "Refactor")

	result := call(t, tool.Handle, map[string]any{
		"operation": "update_task",
		"taskId":    id,
		"updates":   map[string]any{"status": "in_progress", "progressPercentage": 40.0},
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"Task updated successfully", "Reason**: Task updated", "Progress**: 40%"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}

func TestTodoTool_UpdateTask_Errors(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)
	id := createTask(t, tool, "Refactor")

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"progress too high", map[string]any{"taskId": id, "updates": map[string]any{"progressPercentage": 150.0}}, "Number must be less than or equal to 100"},
		{"progress too low", map[string]any{"taskId": id, "updates": map[string]any{"progressPercentage": -1.0}}, "Number must be greater than or equal to 0"},
		{"bad status", map[string]any{"taskId": id, "updates": map[string]any{"status": "done"}}, "Invalid status"},
		{"missing task id", map[string]any{"updates": map[string]any{"title": "x"}}, "Invalid input"},
		{"missing updates", map[string]any{"taskId": id}, "Invalid input"},
		{"updates not object", map[string]any{"taskId": id, "updates": []any{}}, "Invalid input"},
		{"unknown task", map[string]any{"taskId": "nope", "updates": map[string]any{"title": "x"}}, "task not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["operation"] = "update_task"
			result := call(t, tool.Handle, tt.args)
			if !isErrorResult(result) {
				t.Fatalf("expected error, got: %s", getResultText(result))
			}
			text := getResultText(result)
			if !strings.HasPrefix(text, "JSON TODO management failed: ") {
				t.Errorf("missing prefix: %s", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("error %q should contain %q", text, tt.want)
			}
		})
	}

	task, _ := tm.GetTask(id)
	if task.Version != 1 || task.ProgressPercentage != 0 {
		t.Errorf("rejected updates must not mutate: %+v", task)
	}
}

func TestTodoTool_BulkUpdate_CompletesAndReports(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)
	ids := []string{createTask(t, tool, "A"), createTask(t, tool, "B"), createTask(t, tool, "C")}

	updates := make([]any, len(ids))
	for i, id := range ids {
		updates[i] = map[string]any{"taskId": id, "status": "completed"}
	}
	result := call(t, tool.Handle, map[string]any{
		"operation": "bulk_update",
		"updates":   updates,
		"reason":    "Sprint wrap-up",
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"Bulk Update Completed", "Reason**: Sprint wrap-up", "Progress: 100%"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}

	result = call(t, tool.Handle, map[string]any{"operation": "get_analytics"})
	text = getResultText(result)
	if !strings.Contains(text, "Completed**: 3") || !strings.Contains(text, "100.0%") {
		t.Errorf("analytics should report 3 completed at 100.0%%:\n%s", text)
	}
}

func TestTodoTool_BulkUpdate_RejectsWholeBatch(t *testing.T) {
	root, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)
	a := createTask(t, tool, "A")
	b := createTask(t, tool, "B")
	if err := tm.Flush(); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(todo.DataPath(root))
	if err != nil {
		t.Fatal(err)
	}

	result := call(t, tool.Handle, map[string]any{
		"operation": "bulk_update",
		"updates": []any{
			map[string]any{"taskId": a, "status": "in_progress"},
			map[string]any{"taskId": b, "progressPercentage": 101.0},
		},
	})
	if !isErrorResult(result) {
		t.Fatal("expected the batch to be rejected")
	}
	if text := getResultText(result); !strings.Contains(text, "Number must be less than or equal to 100") {
		t.Errorf("unexpected error: %s", text)
	}

	if err := tm.Flush(); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(todo.DataPath(root))
	if string(before) != string(after) {
		t.Error("persisted document changed after a rejected batch")
	}
	task, _ := tm.GetTask(a)
	if task.Status != todo.StatusPending {
		t.Errorf("first entry applied: status = %s", task.Status)
	}
}

func TestTodoTool_BulkUpdate_SingleObjectRejected(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)
	id := createTask(t, tool, "A")

	result := call(t, tool.Handle, map[string]any{
		"operation": "bulk_update",
		"updates":   map[string]any{"taskId": id, "status": "completed"},
	})
	if !isErrorResult(result) {
		t.Fatal("a single object must not be accepted as a batch")
	}
	if text := getResultText(result); !strings.Contains(text, "Invalid input") {
		t.Errorf("unexpected error: %s", text)
	}
}

func TestTodoTool_GetTasks_FilterAndSort(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)
	createTask(t, tool, "Alpha")
	beta := createTask(t, tool, "Beta")
	createTask(t, tool, "Gamma")
	call(t, tool.Handle, map[string]any{
		"operation": "update_task",
		"taskId":    beta,
		"updates":   map[string]any{"status": "completed"},
	})

	result := call(t, tool.Handle, map[string]any{
		"operation": "get_tasks",
		"filter":    map[string]any{"status": "pending"},
		"sortBy":    "title",
		"sortOrder": "desc",
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "2 tasks") {
		t.Errorf("expected 2 tasks:\n%s", text)
	}
	if strings.Contains(text, "Beta") {
		t.Error("completed task should be filtered out")
	}
	if strings.Index(text, "Gamma") > strings.Index(text, "Alpha") {
		t.Error("expected descending title order")
	}

	result = call(t, tool.Handle, map[string]any{"operation": "get_tasks", "sortBy": "colour"})
	if !isErrorResult(result) {
		t.Error("unknown sort key should be rejected")
	}
}

func TestTodoTool_GetAnalytics_Options(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)
	createTask(t, tool, "A")

	text := getResultText(call(t, tool.Handle, map[string]any{"operation": "get_analytics"}))
	if strings.Contains(text, "Velocity") || strings.Contains(text, "Health") {
		t.Errorf("optional sections shown without being requested:\n%s", text)
	}

	text = getResultText(call(t, tool.Handle, map[string]any{
		"operation":       "get_analytics",
		"includeVelocity": true,
		"includeHealth":   true,
	}))
	if !strings.Contains(text, "## Velocity") || !strings.Contains(text, "## Health") {
		t.Errorf("optional sections missing:\n%s", text)
	}
}

func TestTodoTool_AddNote(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)
	id := createTask(t, tool, "A")

	result := call(t, tool.Handle, map[string]any{"operation": "add_note", "taskId": id, "note": "waiting on review"})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	if text := getResultText(result); !strings.Contains(text, "Notes**: 1") {
		t.Errorf("note count missing:\n%s", text)
	}

	result = call(t, tool.Handle, map[string]any{"operation": "add_note", "taskId": id, "note": " "})
	if !isErrorResult(result) {
		t.Error("empty note should be rejected")
	}
}

func TestTodoTool_SyncSnapshot(t *testing.T) {
	_, km, tm := setupTestProject(t)
	tool := NewTodoTool(tm)
	createTask(t, tool, "A")

	result := call(t, tool.Handle, map[string]any{"operation": "sync_snapshot"})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	g, _ := km.LoadKnowledgeGraph()
	if len(g.TodoSnapshots) != 1 || g.TodoSnapshots[0].TotalTasks != 1 {
		t.Errorf("snapshots = %+v", g.TodoSnapshots)
	}
}

func TestTodoTool_LinksMutationsToExecutingIntent(t *testing.T) {
	_, km, tm := setupTestProject(t)
	tool := NewTodoTool(tm)

	intentID, err := km.CreateIntent("Ship docs", nil, knowledge.PriorityMedium)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := km.UpdateIntentStatus(intentID, knowledge.StatusExecuting); err != nil {
		t.Fatal(err)
	}
	createTask(t, tool, "Write docs")

	intent, _ := km.GetIntent(intentID)
	if len(intent.ToolExecutions) != 1 {
		t.Errorf("linked executions = %d, want 1", len(intent.ToolExecutions))
	}

	// Rejected calls record nothing.
	call(t, tool.Handle, map[string]any{"operation": "create_task"})
	g, _ := km.LoadKnowledgeGraph()
	if len(g.ToolExecutions) != 1 {
		t.Errorf("executions = %d, want 1", len(g.ToolExecutions))
	}
}

func TestTodoTool_UnknownOperation(t *testing.T) {
	_, _, tm := setupTestProject(t)
	tool := NewTodoTool(tm)

	for _, op := range []string{"", "delete_task"} {
		result := call(t, tool.Handle, map[string]any{"operation": op})
		if !isErrorResult(result) {
			t.Errorf("operation %q should be rejected", op)
		}
		if text := getResultText(result); !strings.HasPrefix(text, "JSON TODO management failed: Invalid input") {
			t.Errorf("operation %q: unexpected error %q", op, text)
		}
	}
}
