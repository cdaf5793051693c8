package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/todo"
)

// todoFailurePrefix starts every manage_todo_json error message.
const todoFailurePrefix = "JSON TODO management failed: "

// TodoTool handles the manage_todo_json tool.
type TodoTool struct {
	tasks *todo.Manager
}

// NewTodoTool creates a TodoTool.
func NewTodoTool(tasks *todo.Manager) *TodoTool {
	return &TodoTool{tasks: tasks}
}

// Definition returns the MCP tool definition for registration.
func (t *TodoTool) Definition() mcp.Tool {
	return mcp.NewTool("manage_todo_json",
		mcp.WithDescription(
			"Manage the project's persistent task list. "+
				"Operations: create_task (title, description?, priority?, category?, tags?), "+
				"update_task (taskId, updates, reason?), "+
				"bulk_update (updates: array of {taskId, ...fields}, reason?; all-or-nothing), "+
				"get_tasks (filter?, sortBy?, sortOrder?), "+
				"get_analytics (includeVelocity?, includeHealth?), "+
				"add_note (taskId, note), "+
				"sync_snapshot (records a task summary in the knowledge graph). "+
				"Task statuses: pending, in_progress, completed, blocked, cancelled.",
		),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Operation to perform"),
			mcp.Enum("create_task", "update_task", "bulk_update", "get_tasks", "get_analytics", "add_note", "sync_snapshot"),
		),
		mcp.WithString("taskId",
			mcp.Description("Target task ID (update_task, add_note)"),
		),
		mcp.WithString("title",
			mcp.Description("Task title (create_task)"),
		),
		mcp.WithString("description",
			mcp.Description("Task description (create_task)"),
		),
		mcp.WithString("priority",
			mcp.Description("Task priority (create_task)"),
			mcp.Enum("low", "medium", "high", "critical"),
		),
		mcp.WithString("category",
			mcp.Description("Free-form category (create_task)"),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags (create_task)"),
			mcp.WithStringItems(),
		),
		mcp.WithAny("updates",
			mcp.Description(
				"update_task: object with any of title, description, status, priority, category, tags, progressPercentage (0-100), note. "+
					"bulk_update: array of such objects, each with its own taskId.",
			),
		),
		mcp.WithString("reason",
			mcp.Description("Why the change is made. Defaults to 'Task updated' / 'Bulk update'."),
		),
		mcp.WithObject("filter",
			mcp.Description("get_tasks filter: status, priority (string or array), category, tag, search, limit"),
		),
		mcp.WithString("sortBy",
			mcp.Description("get_tasks sort key"),
			mcp.Enum("createdAt", "updatedAt", "priority", "progress", "title", "status"),
		),
		mcp.WithString("sortOrder",
			mcp.Description("get_tasks sort order"),
			mcp.Enum("asc", "desc"),
		),
		mcp.WithBoolean("includeVelocity",
			mcp.Description("get_analytics: include completions over the last 7 days"),
		),
		mcp.WithBoolean("includeHealth",
			mcp.Description("get_analytics: include open/blocked/stale counts and a health score"),
		),
		mcp.WithString("note",
			mcp.Description("Note text (add_note)"),
		),
	)
}

// Handle dispatches on the operation argument.
func (t *TodoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if args == nil {
		args = map[string]any{}
	}

	switch op := req.GetString("operation", ""); op {
	case "create_task":
		return t.createTask(args)
	case "update_task":
		return t.updateTask(req, args)
	case "bulk_update":
		return t.bulkUpdate(req, args)
	case "get_tasks":
		return t.getTasks(args)
	case "get_analytics":
		return t.getAnalytics(req, args)
	case "add_note":
		return t.addNote(req)
	case "sync_snapshot":
		return t.syncSnapshot()
	case "":
		return todoFailure(todo.MsgInvalidInput + ": operation is required (at operation)"), nil
	default:
		return todoFailure(fmt.Sprintf("%s: unknown operation %q (at operation)", todo.MsgInvalidInput, op)), nil
	}
}

func (t *TodoTool) createTask(args map[string]any) (*mcp.CallToolResult, error) {
	in, err := todo.ValidateCreate(args)
	if err != nil {
		return todoError(err)
	}
	task, err := t.tasks.CreateTask(in)
	if err != nil {
		return todoError(err)
	}
	return mcp.NewToolResultText(todo.FormatCreated(task)), nil
}

func (t *TodoTool) updateTask(req mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("taskId", ""))
	if id == "" {
		return todoFailure(todo.MsgInvalidInput + ": Required (at taskId)"), nil
	}
	updates, ok := objectArg(args, "updates")
	if !ok {
		return todoFailure(todo.MsgInvalidInput + ": expected object (at updates)"), nil
	}
	if updates == nil {
		return todoFailure(todo.MsgInvalidInput + ": Required (at updates)"), nil
	}

	u, err := todo.ValidateUpdate(updates)
	if err != nil {
		return todoError(err)
	}
	res, err := t.tasks.UpdateTask(id, u, req.GetString("reason", ""))
	if err != nil {
		return todoError(err)
	}
	return mcp.NewToolResultText(todo.FormatUpdated(res)), nil
}

func (t *TodoTool) bulkUpdate(req mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, error) {
	res, err := t.tasks.BulkUpdate(args["updates"], req.GetString("reason", ""))
	if err != nil {
		return todoError(err)
	}
	return mcp.NewToolResultText(todo.FormatBulk(res)), nil
}

func (t *TodoTool) getTasks(args map[string]any) (*mcp.CallToolResult, error) {
	filter, ok := objectArg(args, "filter")
	if !ok {
		return todoFailure(todo.MsgInvalidInput + ": expected object (at filter)"), nil
	}
	// Filter fields may be nested under "filter" or given at the top level.
	raw := maps.Clone(args)
	maps.Copy(raw, filter)

	q, err := todo.ValidateQuery(raw)
	if err != nil {
		return todoError(err)
	}
	tasks, err := t.tasks.ListTasks(q)
	if err != nil {
		return todoError(err)
	}
	return mcp.NewToolResultText(todo.FormatTaskList(tasks)), nil
}

func (t *TodoTool) getAnalytics(req mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, error) {
	opts := todo.AnalyticsOptions{
		IncludeVelocity: req.GetBool("includeVelocity", false),
		IncludeHealth:   req.GetBool("includeHealth", false),
	}
	if nested, ok := objectArg(args, "options"); ok && nested != nil {
		if v, ok := nested["includeVelocity"].(bool); ok {
			opts.IncludeVelocity = v
		}
		if v, ok := nested["includeHealth"].(bool); ok {
			opts.IncludeHealth = v
		}
	}

	a, err := t.tasks.GetAnalytics(opts)
	if err != nil {
		return todoError(err)
	}
	return mcp.NewToolResultText(todo.FormatAnalytics(a)), nil
}

func (t *TodoTool) addNote(req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("taskId", ""))
	if id == "" {
		return todoFailure(todo.MsgInvalidInput + ": Required (at taskId)"), nil
	}
	task, err := t.tasks.AddNote(id, req.GetString("note", ""))
	if err != nil {
		return todoError(err)
	}
	return mcp.NewToolResultText(todo.FormatNoteAdded(task)), nil
}

func (t *TodoTool) syncSnapshot() (*mcp.CallToolResult, error) {
	snap, err := t.tasks.SyncSnapshot()
	if err != nil {
		return nil, fmt.Errorf("syncing snapshot: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# 🔗 Snapshot Recorded\n\n")
	fmt.Fprintf(&sb, "- **Total Tasks**: %d\n", snap.TotalTasks)
	fmt.Fprintf(&sb, "- **Completion**: %.1f%%\n", snap.CompletionPercentage)
	fmt.Fprintf(&sb, "- **Taken At**: %s\n", snap.TakenAt)
	return mcp.NewToolResultText(sb.String()), nil
}

// todoError maps domain errors to tool errors and passes anything else
// through as an infrastructure failure.
func todoError(err error) (*mcp.CallToolResult, error) {
	var verr *todo.ValidationError
	if errors.As(err, &verr) || errors.Is(err, todo.ErrNotFound) {
		return todoFailure(err.Error()), nil
	}
	return nil, fmt.Errorf("manage_todo_json: %w", err)
}

func todoFailure(diag string) *mcp.CallToolResult {
	return mcp.NewToolResultError(todoFailurePrefix + diag)
}
