package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
)

// UpdateIntentStatusTool handles the update_intent_status tool.
type UpdateIntentStatusTool struct {
	graph *knowledge.Manager
}

// NewUpdateIntentStatusTool creates an UpdateIntentStatusTool.
func NewUpdateIntentStatusTool(graph *knowledge.Manager) *UpdateIntentStatusTool {
	return &UpdateIntentStatusTool{graph: graph}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateIntentStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("update_intent_status",
		mcp.WithDescription(
			"Move an intent through its lifecycle. Allowed transitions: "+
				"planned → executing | completed | failed, executing → completed | failed. "+
				"Every transition is appended to the intent's history.",
		),
		mcp.WithString("intentId",
			mcp.Required(),
			mcp.Description("Intent ID returned by create_intent"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("New status"),
			mcp.Enum("planned", "executing", "completed", "failed"),
		),
	)
}

// Handle processes the update_intent_status tool call.
func (t *UpdateIntentStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("intentId", ""))
	if id == "" {
		return mcp.NewToolResultError("'intentId' is required"), nil
	}
	status := knowledge.IntentStatus(req.GetString("status", ""))

	intent, err := t.graph.UpdateIntentStatus(id, status)
	if err != nil {
		return graphError("update_intent_status", err)
	}

	var sb strings.Builder
	sb.WriteString("# 🔄 Intent Status Updated\n\n")
	fmt.Fprintf(&sb, "- **ID**: `%s`\n", intent.ID)
	fmt.Fprintf(&sb, "- **Description**: %s\n", intent.Description)
	fmt.Fprintf(&sb, "- **Status**: %s\n", intent.Status)
	sb.WriteString("\n## History\n\n")
	for _, h := range intent.History {
		fmt.Fprintf(&sb, "- %s at %s\n", h.Status, h.At)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
