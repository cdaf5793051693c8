package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/reinforce"
)

// ReinforcementTool handles the context_reinforcement tool.
type ReinforcementTool struct {
	rm *reinforce.Manager
}

// NewReinforcementTool creates a ReinforcementTool.
func NewReinforcementTool(rm *reinforce.Manager) *ReinforcementTool {
	return &ReinforcementTool{rm: rm}
}

// Definition returns the MCP tool definition for registration.
func (t *ReinforcementTool) Definition() mcp.Tool {
	return mcp.NewTool("context_reinforcement",
		mcp.WithDescription(
			"Inspect or tune context reinforcement. A reminder of the objective, key principles "+
				"and recent intents is appended to tool output every N turns or when output "+
				"exceeds a token threshold. Actions: status, update_config, reset (turn counter).",
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Action to perform"),
			mcp.Enum("status", "update_config", "reset"),
		),
		mcp.WithNumber("turnInterval",
			mcp.Description("update_config: inject every N turns (>= 1)"),
		),
		mcp.WithNumber("tokenThreshold",
			mcp.Description("update_config: inject when output exceeds this many estimated tokens (>= 1)"),
		),
		mcp.WithBoolean("includeKnowledgeGraphContext",
			mcp.Description("update_config: list recent active intents in the reminder"),
		),
		mcp.WithNumber("maxRecentIntents",
			mcp.Description("update_config: how many intents to list (>= 0)"),
		),
	)
}

// Handle processes the context_reinforcement tool call.
func (t *ReinforcementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch action := req.GetString("action", ""); action {
	case "status":
		return mcp.NewToolResultText(t.formatStatus("# 🔁 Context Reinforcement")), nil

	case "update_config":
		u, err := parseConfigUpdate(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if _, err := t.rm.UpdateConfig(u); err != nil {
			if errors.Is(err, reinforce.ErrInvalidConfig) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, fmt.Errorf("context_reinforcement: %w", err)
		}
		return mcp.NewToolResultText(t.formatStatus("# ✅ Reinforcement Config Updated")), nil

	case "reset":
		t.rm.ResetTurnCounter()
		return mcp.NewToolResultText(t.formatStatus("# 🔄 Turn Counter Reset")), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid action %q: must be one of: status, update_config, reset", action)), nil
	}
}

func (t *ReinforcementTool) formatStatus(title string) string {
	cfg := t.rm.GetConfig()
	turn := t.rm.GetCurrentTurn()

	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	fmt.Fprintf(&sb, "- **Current Turn**: %d\n", turn)
	fmt.Fprintf(&sb, "- **Next Scheduled Reminder**: turn %d\n", (turn/cfg.TurnInterval+1)*cfg.TurnInterval)
	fmt.Fprintf(&sb, "- **Turn Interval**: %d\n", cfg.TurnInterval)
	fmt.Fprintf(&sb, "- **Token Threshold**: %d\n", cfg.TokenThreshold)
	fmt.Fprintf(&sb, "- **Knowledge Graph Context**: %t\n", cfg.IncludeKnowledgeGraphContext)
	fmt.Fprintf(&sb, "- **Max Recent Intents**: %d\n", cfg.MaxRecentIntents)
	return sb.String()
}

func parseConfigUpdate(args map[string]any) (reinforce.ConfigUpdate, error) {
	var u reinforce.ConfigUpdate
	var err error
	if u.TurnInterval, err = optionalInt(args, "turnInterval"); err != nil {
		return u, err
	}
	if u.TokenThreshold, err = optionalInt(args, "tokenThreshold"); err != nil {
		return u, err
	}
	if u.MaxRecentIntents, err = optionalInt(args, "maxRecentIntents"); err != nil {
		return u, err
	}
	if v, ok := args["includeKnowledgeGraphContext"]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			return u, errors.New("'includeKnowledgeGraphContext' must be a boolean")
		}
		u.IncludeKnowledgeGraphContext = &b
	}
	if u == (reinforce.ConfigUpdate{}) {
		return u, errors.New("update_config needs at least one of: turnInterval, tokenThreshold, includeKnowledgeGraphContext, maxRecentIntents")
	}
	return u, nil
}

// optionalInt reads an integral JSON number, or nil when the key is absent.
func optionalInt(args map[string]any, key string) (*int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return nil, fmt.Errorf("'%s' must be a number", key)
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("'%s' must be an integer", key)
	}
	i := int(f)
	return &i, nil
}
