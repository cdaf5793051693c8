// taskgraph: task and intent tracking MCP server
//
// A universal MCP server that keeps a validated, persistent task list and a
// knowledge graph of intents and tool executions for the project it runs in,
// and periodically reminds the assistant of the current objective.
//
// Usage:
//
//	taskgraph serve       # Start MCP server (stdio transport)
//	taskgraph analytics   # Print task analytics for the current project
//	taskgraph version     # Print the version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	tgserver "github.com/HendryAvila/taskgraph/internal/server"
)

// configPath is the YAML file read by every subcommand.
var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "taskgraph",
		Short:         "Task and intent tracking MCP server",
		Version:       tgserver.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "taskgraph.yaml", "path to the YAML config file (optional)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskgraph v%s\n", tgserver.Version)
		},
	}
}
