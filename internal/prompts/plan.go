package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// PlanPrompt handles the taskgraph-plan MCP prompt.
// It guides the AI to turn a goal into an intent and a task breakdown.
type PlanPrompt struct{}

// NewPlanPrompt creates a PlanPrompt.
func NewPlanPrompt() *PlanPrompt {
	return &PlanPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *PlanPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("taskgraph-plan",
		mcp.WithPromptDescription(
			"Plan a piece of work. Records the goal as an intent, "+
				"breaks it into tasks and starts executing it.",
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What you want to achieve"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("priority",
			mcp.ArgumentDescription("Priority for the intent and its tasks: low, medium, high or critical. Default: medium"),
		),
	)
}

// Handle processes the taskgraph-plan prompt request.
func (p *PlanPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	goal := ""
	priority := "medium"
	if args := req.Params.Arguments; args != nil {
		goal = args["goal"]
		if pr, ok := args["priority"]; ok && pr != "" {
			priority = pr
		}
	}
	if goal == "" {
		return nil, fmt.Errorf("argument 'goal' is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Plan: %s", goal),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to: %s\n\n"+
						"Please:\n"+
						"1. Run `create_intent` with this goal as the description, 2-5 concrete goals, and priority='%s'\n"+
						"2. Break the work into small tasks and create each with `manage_todo_json` operation='create_task' (priority='%s')\n"+
						"3. Run `update_intent_status` to move the intent to 'executing' so task changes are linked to it\n"+
						"4. Show me the plan and start on the first task, keeping progress updated as you go\n"+
						"5. When every task is done, mark the intent 'completed' and run operation='sync_snapshot'",
					goal, priority, priority,
				)),
			},
		},
	}, nil
}
