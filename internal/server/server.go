// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the managers for one project,
// connects them to each other and injects them into the tools, prompts and
// resources that use them. No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/taskgraph/internal/config"
	"github.com/HendryAvila/taskgraph/internal/journal"
	"github.com/HendryAvila/taskgraph/internal/knowledge"
	"github.com/HendryAvila/taskgraph/internal/prompts"
	"github.com/HendryAvila/taskgraph/internal/reinforce"
	"github.com/HendryAvila/taskgraph/internal/resources"
	"github.com/HendryAvila/taskgraph/internal/todo"
	"github.com/HendryAvila/taskgraph/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function flushes pending writes and closes the
// journal. It must be called on shutdown (typically via defer).
// It is always non-nil and safe to call even if New failed.
func New(cfg *config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	// --- Resolve the project ---

	root := cfg.Storage.ProjectRoot
	if root == "" {
		found, err := tools.FindProjectRoot("")
		if err != nil {
			return nil, noop, fmt.Errorf("finding project root: %w", err)
		}
		root = found
	}
	project := filepath.Base(root)
	logger = logger.With("project", project)

	// --- Create shared dependencies ---

	graph, err := knowledge.NewManager(knowledge.Options{
		ProjectRoot: root,
		FlushDelay:  cfg.Storage.FlushDelay,
		Logger:      logger,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("creating knowledge graph: %w", err)
	}

	tasks, err := todo.NewManager(todo.Options{
		ProjectRoot:           root,
		FlushDelay:            cfg.Storage.FlushDelay,
		Graph:                 graph,
		Logger:                logger,
		AnalyticsCacheMaxCost: cfg.Cache.AnalyticsMaxCost,
	})
	if err != nil {
		closeAll(logger, graph.Close)
		return nil, noop, fmt.Errorf("creating task store: %w", err)
	}

	reinforcer := reinforce.NewManager(graph, reinforce.Config{
		TurnInterval:                 cfg.Reinforcement.TurnInterval,
		TokenThreshold:               cfg.Reinforcement.TokenThreshold,
		IncludeKnowledgeGraphContext: cfg.Reinforcement.IncludeKnowledgeGraphContext,
		MaxRecentIntents:             cfg.Reinforcement.MaxRecentIntents,
	}, logger)

	// --- Create the MCP server ---
	//
	// Every successful tool result passes through context reinforcement,
	// except the tool that inspects reinforcement itself.

	s := server.NewMCPServer(
		"taskgraph",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(reinforcer.Middleware("context_reinforcement")),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register task and graph tools ---

	todoTool := tools.NewTodoTool(tasks)
	s.AddTool(todoTool.Definition(), todoTool.Handle)

	createIntent := tools.NewCreateIntentTool(graph)
	s.AddTool(createIntent.Definition(), createIntent.Handle)

	updateIntent := tools.NewUpdateIntentStatusTool(graph)
	s.AddTool(updateIntent.Definition(), updateIntent.Handle)

	activeIntents := tools.NewActiveIntentsTool(graph)
	s.AddTool(activeIntents.Definition(), activeIntents.Handle)

	toolExecution := tools.NewToolExecutionTool(graph)
	s.AddTool(toolExecution.Definition(), toolExecution.Handle)

	graphTool := tools.NewKnowledgeGraphTool(graph)
	s.AddTool(graphTool.Definition(), graphTool.Handle)

	reinforcementTool := tools.NewReinforcementTool(reinforcer)
	s.AddTool(reinforcementTool.Definition(), reinforcementTool.Handle)

	// --- Activity journal ---
	//
	// The journal is an independent subsystem: if it fails to open, the
	// task and graph tools keep working. We log a warning and skip the
	// search tool.

	closers := []func() error{tasks.Close, graph.Close}
	if cfg.Storage.Journal {
		store, jerr := journal.New(journal.Config{DataDir: cfg.Storage.DataDir})
		if jerr != nil {
			logger.Warn("activity journal disabled", "error", jerr)
		} else {
			graph.SetObserver(journal.NewBridge(store, project, logger))
			closers = append(closers, store.Close)

			searchTool := tools.NewSearchActivityTool(store, project)
			s.AddTool(searchTool.Definition(), searchTool.Handle)
		}
	}

	// --- Register prompts ---

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	planPrompt := prompts.NewPlanPrompt()
	s.AddPrompt(planPrompt.Definition(), planPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(tasks, graph)
	s.AddResource(resourceHandler.TasksResource(), resourceHandler.HandleTasks)
	s.AddResource(resourceHandler.GraphResource(), resourceHandler.HandleGraph)

	logger.Info("server ready", "root", root, "version", Version)

	// Tasks close first: their final flush may still record into the graph.
	cleanup := func() { closeAll(logger, closers...) }
	return s, cleanup, nil
}

// noop is a no-op cleanup function returned when New fails.
func noop() {}

func closeAll(logger *slog.Logger, closers ...func() error) {
	for _, c := range closers {
		if err := c(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use taskgraph effectively.
func serverInstructions() string {
	return `You have access to taskgraph, a task and intent tracking MCP server.

## What it does
- manage_todo_json keeps a persistent, validated task list for this project.
- The knowledge graph records WHY work happens: intents (goals) and every
  tool execution performed while an intent is executing.
- Context reinforcement periodically appends a short reminder of the
  objective, key principles and recent intents to tool output.

## Workflow
1. Before non-trivial work, call create_intent with a clear description and goals.
2. Move the intent to 'executing' with update_intent_status.
3. Break the work into tasks with manage_todo_json operation='create_task'.
4. Keep tasks current with update_task (single) or bulk_update (many, all-or-nothing).
   Always pass a short 'reason'.
5. When done, mark the intent 'completed' (or 'failed') and call
   manage_todo_json operation='sync_snapshot'.

## Rules
- Task statuses: pending, in_progress, completed, blocked, cancelled.
- progressPercentage is an integer from 0 to 100.
- bulk_update takes an ARRAY of objects, each with its own taskId. If any
  entry is invalid, nothing is applied: fix the reported entry and retry.
- Use get_analytics to report progress instead of counting tasks yourself.
- Use search_activity to recall what happened in earlier sessions.
- Treat the "Context Reminder" blocks as guidance, not as user requests.`
}
