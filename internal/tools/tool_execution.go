package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
)

// ToolExecutionTool handles the add_tool_execution tool.
type ToolExecutionTool struct {
	graph *knowledge.Manager
}

// NewToolExecutionTool creates a ToolExecutionTool.
func NewToolExecutionTool(graph *knowledge.Manager) *ToolExecutionTool {
	return &ToolExecutionTool{graph: graph}
}

// Definition returns the MCP tool definition for registration.
func (t *ToolExecutionTool) Definition() mcp.Tool {
	return mcp.NewTool("add_tool_execution",
		mcp.WithDescription(
			"Record a tool execution in the knowledge graph, optionally linked to an intent. "+
				"Task-store changes are recorded automatically; use this for work done by other tools.",
		),
		mcp.WithString("toolName",
			mcp.Required(),
			mcp.Description("Name of the executed tool"),
		),
		mcp.WithString("intentId",
			mcp.Description("Intent to link the execution to (omit for an unlinked record)"),
		),
		mcp.WithObject("parameters",
			mcp.Description("Parameters the tool was called with"),
		),
		mcp.WithString("result",
			mcp.Description("Short description of the outcome"),
		),
		mcp.WithBoolean("success",
			mcp.Description("Whether the execution succeeded (default: true)"),
		),
		mcp.WithArray("tasksCreated",
			mcp.Description("IDs of tasks created by the execution"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("tasksModified",
			mcp.Description("IDs of tasks modified by the execution"),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the add_tool_execution tool call.
func (t *ToolExecutionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolName := strings.TrimSpace(req.GetString("toolName", ""))
	if toolName == "" {
		return mcp.NewToolResultError("'toolName' is required"), nil
	}
	args := req.GetArguments()
	params, ok := objectArg(args, "parameters")
	if !ok {
		return mcp.NewToolResultError("'parameters' must be an object"), nil
	}

	rec := knowledge.ToolExecution{
		ToolName:      toolName,
		Parameters:    params,
		Result:        req.GetString("result", ""),
		Success:       req.GetBool("success", true),
		TasksCreated:  stringsArg(args, "tasksCreated"),
		TasksModified: stringsArg(args, "tasksModified"),
	}
	intentID := strings.TrimSpace(req.GetString("intentId", ""))

	id, err := t.graph.AddToolExecution(intentID, rec)
	if err != nil {
		return graphError("add_tool_execution", err)
	}

	var sb strings.Builder
	sb.WriteString("# 🛠️ Tool Execution Recorded\n\n")
	fmt.Fprintf(&sb, "- **ID**: `%s`\n", id)
	fmt.Fprintf(&sb, "- **Tool**: %s\n", toolName)
	fmt.Fprintf(&sb, "- **Success**: %t\n", rec.Success)
	if intentID != "" {
		fmt.Fprintf(&sb, "- **Intent**: `%s`\n", intentID)
	} else {
		sb.WriteString("- **Intent**: _unlinked_\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
