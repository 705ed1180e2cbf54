package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aasc77/prism/internal/config"
	"github.com/aasc77/prism/internal/task"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks and their pipeline status",
	RunE:  runTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	tasks, err := task.Load(cfg.Engine.StateDir)
	if err != nil {
		return fmt.Errorf("task list unavailable: %w", err)
	}

	printTasks(tasks.All())
	return nil
}
