package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
)

// recentExecutionsShown caps the execution list in the summary view.
const recentExecutionsShown = 10

// KnowledgeGraphTool handles the get_knowledge_graph tool.
type KnowledgeGraphTool struct {
	graph *knowledge.Manager
}

// NewKnowledgeGraphTool creates a KnowledgeGraphTool.
func NewKnowledgeGraphTool(graph *knowledge.Manager) *KnowledgeGraphTool {
	return &KnowledgeGraphTool{graph: graph}
}

// Definition returns the MCP tool definition for registration.
func (t *KnowledgeGraphTool) Definition() mcp.Tool {
	return mcp.NewTool("get_knowledge_graph",
		mcp.WithDescription(
			"Read the knowledge graph: intents, tool executions, task snapshots and analytics. "+
				"'summary' (default) renders markdown; 'json' returns the full document.",
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum("summary", "json"),
		),
	)
}

// Handle processes the get_knowledge_graph tool call.
func (t *KnowledgeGraphTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := t.graph.LoadKnowledgeGraph()
	if err != nil {
		return graphError("get_knowledge_graph", err)
	}

	switch format := req.GetString("format", "summary"); format {
	case "json":
		data, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling knowledge graph: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	case "summary":
		return mcp.NewToolResultText(formatGraphSummary(g)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid format %q: must be one of: summary, json", format)), nil
	}
}

func formatGraphSummary(g *knowledge.Graph) string {
	a := g.Analytics
	var sb strings.Builder
	sb.WriteString("# 🧠 Knowledge Graph\n\n")
	fmt.Fprintf(&sb, "- **Intents**: %d (active %d, completed %d, failed %d)\n",
		a.TotalIntents, a.ActiveIntents, a.CompletedIntents, a.FailedIntents)
	fmt.Fprintf(&sb, "- **Tool Executions**: %d (%d successful)\n", a.TotalToolExecutions, a.SuccessfulToolExecutions)
	fmt.Fprintf(&sb, "- **Snapshots**: %d\n", len(g.TodoSnapshots))

	if len(g.Intents) > 0 {
		sb.WriteString("\n## Intents\n\n")
		for _, in := range g.Intents {
			fmt.Fprintf(&sb, "- `%s` %s (%s, %s)\n", in.ID, in.Description, in.Status, in.Priority)
		}
	}

	if n := len(g.ToolExecutions); n > 0 {
		sb.WriteString("\n## Recent Tool Executions\n\n")
		for i := n - 1; i >= 0 && i >= n-recentExecutionsShown; i-- {
			e := g.ToolExecutions[i]
			mark := "✅"
			if !e.Success {
				mark = "❌"
			}
			fmt.Fprintf(&sb, "- %s %s: %s\n", mark, e.ToolName, e.Result)
		}
	}

	if n := len(g.TodoSnapshots); n > 0 {
		last := g.TodoSnapshots[n-1]
		sb.WriteString("\n## Latest Snapshot\n\n")
		fmt.Fprintf(&sb, "- %d tasks, %.1f%% complete (%s)\n", last.TotalTasks, last.CompletionPercentage, last.TakenAt)
	}
	return sb.String()
}
