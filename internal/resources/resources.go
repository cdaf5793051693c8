// Package resources implements MCP resource handlers for the task store and
// the knowledge graph.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (taskgraph://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/taskgraph/internal/knowledge"
	"github.com/HendryAvila/taskgraph/internal/todo"
)

// Resource URIs.
const (
	TasksURI = "taskgraph://tasks"
	GraphURI = "taskgraph://knowledge-graph"
)

// Handler serves the task store and knowledge graph documents.
type Handler struct {
	tasks *todo.Manager
	graph *knowledge.Manager
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(tasks *todo.Manager, graph *knowledge.Manager) *Handler {
	return &Handler{tasks: tasks, graph: graph}
}

// TasksResource returns the MCP resource definition for the task document.
func (h *Handler) TasksResource() mcp.Resource {
	return mcp.NewResource(
		TasksURI,
		"Task List",
		mcp.WithResourceDescription("All tasks with their status, progress, notes and metadata"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleTasks returns the task document as JSON.
func (h *Handler) HandleTasks(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := h.tasks.Export()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, data), nil
}

// GraphResource returns the MCP resource definition for the knowledge graph.
func (h *Handler) GraphResource() mcp.Resource {
	return mcp.NewResource(
		GraphURI,
		"Knowledge Graph",
		mcp.WithResourceDescription("Intents, tool executions, task snapshots and analytics"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleGraph returns the knowledge graph with fresh analytics as JSON.
func (h *Handler) HandleGraph(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	g, err := h.graph.LoadKnowledgeGraph()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling knowledge graph: %w", err)
	}
	return jsonResource(req.Params.URI, data), nil
}
