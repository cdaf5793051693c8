package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/taskgraph/internal/config"
	"github.com/HendryAvila/taskgraph/internal/logger"
	"github.com/HendryAvila/taskgraph/internal/todo"
	"github.com/HendryAvila/taskgraph/internal/tools"
)

func analyticsCmd() *cobra.Command {
	var (
		root     string
		asJSON   bool
		velocity bool
		health   bool
	)

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print task analytics for a project",
		Long: `Read the project's task store and print the same analytics the
get_analytics operation returns. The store is opened read-only in effect:
nothing is mutated, so nothing is written back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configPath)
			if err != nil {
				return err
			}
			if root == "" {
				root = cfg.Storage.ProjectRoot
			}
			if root == "" {
				if root, err = tools.FindProjectRoot(""); err != nil {
					return err
				}
			}

			tasks, err := todo.NewManager(todo.Options{
				ProjectRoot:           root,
				Logger:                logger.New(cfg.Logging),
				AnalyticsCacheMaxCost: cfg.Cache.AnalyticsMaxCost,
			})
			if err != nil {
				return err
			}
			defer tasks.Close()

			a, err := tasks.GetAnalytics(todo.AnalyticsOptions{IncludeVelocity: velocity, IncludeHealth: health})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(a)
			}
			_, err = fmt.Fprint(out, todo.FormatAnalytics(a))
			return err
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "project root (default: nearest ancestor with .taskgraph/, else cwd)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	cmd.Flags().BoolVar(&velocity, "velocity", true, "include completion velocity")
	cmd.Flags().BoolVar(&health, "health", true, "include health summary")
	return cmd
}
