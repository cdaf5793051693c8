// Package tools implements the MCP tool handlers for the task store, the
// knowledge graph, context reinforcement and the activity journal.
//
// Each tool is a struct that receives its dependencies at construction and
// exposes Definition() and Handle() for registration with mcp-go.
//
// Design principles:
// - SRP: each file = one tool
// - Validation and lookup failures are tool errors, infrastructure failures are Go errors
package tools

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
)

// MarkerDir marks a project root.
const MarkerDir = ".taskgraph"

// FindProjectRoot walks up from start looking for a directory that contains
// a .taskgraph/ directory. If none is found, returns start.
// This allows the server to be launched from any subdirectory of the project.
//
// The home directory is never picked up on the way: a .taskgraph/ there
// belongs to the user, not to a project below it. It is still a root when
// start is the home directory itself.
func FindProjectRoot(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		start = wd
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	home := ""
	if h, err := os.UserHomeDir(); err == nil {
		home = filepath.Clean(h)
	}

	current := dir
	for {
		if current == dir || current != home {
			candidate := filepath.Join(current, MarkerDir)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root. The caller's directory becomes the root
			// and .taskgraph/ is created there on first write.
			return dir, nil
		}
		current = parent
	}
}

// objectArg returns args[key] as a JSON object, or nil when absent.
func objectArg(args map[string]any, key string) (map[string]any, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, true
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// stringsArg reads an optional array of strings. Non-string items are skipped.
func stringsArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		if ss, ok := args[key].([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// graphError maps knowledge-graph domain errors to tool errors.
func graphError(tool string, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, knowledge.ErrInvalid) || errors.Is(err, knowledge.ErrNotFound) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, fmt.Errorf("%s: %w", tool, err)
}
