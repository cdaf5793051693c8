package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
)

// ActiveIntentsTool handles the get_active_intents tool.
type ActiveIntentsTool struct {
	graph *knowledge.Manager
}

// NewActiveIntentsTool creates an ActiveIntentsTool.
func NewActiveIntentsTool(graph *knowledge.Manager) *ActiveIntentsTool {
	return &ActiveIntentsTool{graph: graph}
}

// Definition returns the MCP tool definition for registration.
func (t *ActiveIntentsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_active_intents",
		mcp.WithDescription("List planned and executing intents, most recent first."),
	)
}

// Handle processes the get_active_intents tool call.
func (t *ActiveIntentsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	intents, err := t.graph.GetActiveIntents()
	if err != nil {
		return graphError("get_active_intents", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# 🎯 Active Intents (%d)\n\n", len(intents))
	if len(intents) == 0 {
		sb.WriteString("_No active intents. Use create_intent to record one._\n")
		return mcp.NewToolResultText(sb.String()), nil
	}
	for _, in := range intents {
		fmt.Fprintf(&sb, "## %s\n\n", in.Description)
		fmt.Fprintf(&sb, "- ID: `%s`\n", in.ID)
		fmt.Fprintf(&sb, "- Status: %s | Priority: %s\n", in.Status, in.Priority)
		fmt.Fprintf(&sb, "- Tool executions: %d\n", len(in.ToolExecutions))
		for _, g := range in.Goals {
			fmt.Fprintf(&sb, "  - [ ] %s\n", g)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
