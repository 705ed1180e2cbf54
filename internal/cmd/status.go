package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aasc77/prism/internal/config"
	"github.com/aasc77/prism/internal/task"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine and task status",
	Long:  `Display the persisted engine state and task counts without starting the engine.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// persistedEngineState mirrors the engine's state file for read-only
// display.
type persistedEngineState struct {
	Mode          string `json:"mode"`
	ActiveTask    string `json:"active_task"`
	BlockedReason string `json:"blocked_reason"`
	Paused        bool   `json:"paused"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Engine.StateDir, "engine.json"))
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no engine state (engine has not run yet)")
			return nil
		}
		return err
	}

	var state persistedEngineState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("engine state unreadable: %w", err)
	}

	fmt.Println(styleHeader.Render("engine status"))
	fmt.Printf("  mode: %s\n", state.Mode)
	if state.ActiveTask != "" {
		fmt.Printf("  active task: %s\n", state.ActiveTask)
	}
	if state.BlockedReason != "" {
		fmt.Printf("  blocked: %s\n", styleError.Render(state.BlockedReason))
	}
	if state.Paused {
		fmt.Println("  polling: " + styleWarn.Render("paused"))
	}

	tasks, err := task.Load(cfg.Engine.StateDir)
	if err != nil {
		fmt.Println("  tasks: unavailable:", err)
		return nil
	}
	pending, inProgress, completed, stuck := tasks.Counts()
	fmt.Printf("  tasks: %d pending, %d in progress, %d completed, %d stuck\n",
		pending, inProgress, completed, stuck)
	return nil
}
