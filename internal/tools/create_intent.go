package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
)

// CreateIntentTool handles the create_intent tool.
type CreateIntentTool struct {
	graph *knowledge.Manager
}

// NewCreateIntentTool creates a CreateIntentTool.
func NewCreateIntentTool(graph *knowledge.Manager) *CreateIntentTool {
	return &CreateIntentTool{graph: graph}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateIntentTool) Definition() mcp.Tool {
	return mcp.NewTool("create_intent",
		mcp.WithDescription(
			"Record a new intent (a goal the current work serves) in the knowledge graph. "+
				"Intents start as 'planned'. Move one to 'executing' with update_intent_status "+
				"so task changes are linked to it.",
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("What this intent is trying to achieve"),
		),
		mcp.WithArray("goals",
			mcp.Description("Concrete goals that define success"),
			mcp.WithStringItems(),
		),
		mcp.WithString("priority",
			mcp.Description("Intent priority (default: medium)"),
			mcp.Enum("low", "medium", "high", "critical"),
		),
	)
}

// Handle processes the create_intent tool call.
func (t *CreateIntentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := req.GetString("description", "")
	if strings.TrimSpace(description) == "" {
		return mcp.NewToolResultError("'description' is required"), nil
	}
	goals := stringsArg(req.GetArguments(), "goals")
	priority := knowledge.Priority(req.GetString("priority", ""))

	id, err := t.graph.CreateIntent(description, goals, priority)
	if err != nil {
		return graphError("create_intent", err)
	}
	intent, err := t.graph.GetIntent(id)
	if err != nil {
		return graphError("create_intent", err)
	}

	var sb strings.Builder
	sb.WriteString("# 🎯 Intent Created\n\n")
	fmt.Fprintf(&sb, "- **ID**: `%s`\n", intent.ID)
	fmt.Fprintf(&sb, "- **Description**: %s\n", intent.Description)
	fmt.Fprintf(&sb, "- **Priority**: %s\n", intent.Priority)
	fmt.Fprintf(&sb, "- **Status**: %s\n", intent.Status)
	if len(intent.Goals) > 0 {
		sb.WriteString("\n## Goals\n\n")
		for _, g := range intent.Goals {
			fmt.Fprintf(&sb, "- %s\n", g)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}
