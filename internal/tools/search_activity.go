package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/journal"
)

// SearchActivityTool handles the search_activity tool.
type SearchActivityTool struct {
	store   *journal.Store
	project string
}

// NewSearchActivityTool creates a SearchActivityTool. project is the default
// project filter, usually the base name of the project root.
func NewSearchActivityTool(store *journal.Store, project string) *SearchActivityTool {
	return &SearchActivityTool{store: store, project: project}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchActivityTool) Definition() mcp.Tool {
	return mcp.NewTool("search_activity",
		mcp.WithDescription(
			"Search the activity journal: every intent, status change, tool execution and task "+
				"snapshot recorded across sessions. Full-text keyword search; an empty query lists "+
				"the most recent entries.",
		),
		mcp.WithString("query",
			mcp.Description("Keywords to search for (empty = most recent)"),
		),
		mcp.WithString("kind",
			mcp.Description("Filter by event kind"),
			mcp.Enum("intent_created", "intent_status", "tool_execution", "todo_snapshot"),
		),
		mcp.WithString("scope",
			mcp.Description("'project' (default) searches this project only, 'all' searches every project"),
			mcp.Enum("project", "all"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the search_activity tool call.
func (t *SearchActivityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	opts := journal.SearchOptions{
		Kind:  req.GetString("kind", ""),
		Limit: req.GetInt("limit", 10),
	}
	switch scope := req.GetString("scope", "project"); scope {
	case "project":
		opts.Project = t.project
	case "all":
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid scope %q: must be one of: project, all", scope)), nil
	}

	results, err := t.store.Search(query, opts)
	if err != nil {
		return nil, fmt.Errorf("search_activity: %w", err)
	}

	var sb strings.Builder
	if strings.TrimSpace(query) == "" {
		fmt.Fprintf(&sb, "# 📜 Recent Activity (%d)\n\n", len(results))
	} else {
		fmt.Fprintf(&sb, "# 🔍 Activity matching %q (%d)\n\n", query, len(results))
	}
	if len(results) == 0 {
		sb.WriteString("_No matching activity._\n")
		return mcp.NewToolResultText(sb.String()), nil
	}
	for _, r := range results {
		fmt.Fprintf(&sb, "### [%s] %s\n", r.Kind, r.Title)
		fmt.Fprintf(&sb, "- %s", r.CreatedAt)
		if r.Project != "" && opts.Project == "" {
			fmt.Fprintf(&sb, " | project: %s", r.Project)
		}
		if r.SubjectID != "" {
			fmt.Fprintf(&sb, " | id: `%s`", r.SubjectID)
		}
		sb.WriteString("\n")
		if r.Content != "" {
			fmt.Fprintf(&sb, "\n%s\n", journal.Truncate(r.Content, 300))
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
