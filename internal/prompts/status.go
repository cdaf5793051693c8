// Package prompts implements MCP prompt handlers for task tracking.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the taskgraph-status MCP prompt.
// It instructs the AI to read and present the current tasks and intents.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("taskgraph-status",
		mcp.WithPromptDescription(
			"Check where the work stands. "+
				"Shows task progress, active intents, blocked or stale work, "+
				"and what to do next.",
		),
	)
}

// Handle processes the taskgraph-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Task and Intent Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please check my project status:\n\n" +
						"1. Run `manage_todo_json` with operation='get_analytics', includeVelocity=true and includeHealth=true\n" +
						"2. Run `get_active_intents` to see what the work is currently serving\n" +
						"3. Run `manage_todo_json` with operation='get_tasks' and filter status=['in_progress','blocked']\n\n" +
						"Then:\n" +
						"- Summarize overall progress in one or two lines\n" +
						"- Call out blocked and stale tasks explicitly\n" +
						"- Tell me exactly what I should do next",
				),
			},
		},
	}, nil
}
