package main

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/taskgraph/internal/config"
	"github.com/HendryAvila/taskgraph/internal/logger"
	tgserver "github.com/HendryAvila/taskgraph/internal/server"
)

func serveCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Long: `Start the MCP server on stdin/stdout.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "taskgraph": {
        "command": "taskgraph",
        "args": ["serve"]
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configPath)
			if err != nil {
				return err
			}
			if root != "" {
				cfg.Storage.ProjectRoot = root
			}

			// Logs go to stderr: stdout is the MCP transport.
			log := logger.New(cfg.Logging)

			s, cleanup, err := tgserver.New(cfg, log)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			// ServeStdio handles SIGINT/SIGTERM and returns, so cleanup
			// still runs and pending writes are flushed.
			return server.ServeStdio(s, server.WithErrorLogger(slog.NewLogLogger(log.Handler(), slog.LevelError)))
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "project root (default: nearest ancestor with .taskgraph/, else cwd)")
	return cmd
}
