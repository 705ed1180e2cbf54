package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aasc77/prism/internal/config"
	"github.com/aasc77/prism/internal/mailbox"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear engine state and mailbox",
	Long: `Remove the persisted engine state and purge every mailbox inbox.
The task list is left alone. Use before re-running a pipeline from
scratch. Requires --force.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "actually perform the reset")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	if !resetForce {
		fmt.Println("refusing to reset without --force")
		return nil
	}

	statePath := filepath.Join(cfg.Engine.StateDir, "engine.json")
	if err := os.Remove(statePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove engine state: %w", err)
	}

	mail := mailbox.NewStore(cfg.MailboxDir())
	if err := mail.Purge(); err != nil {
		return fmt.Errorf("purge mailbox: %w", err)
	}

	fmt.Println("engine state and mailbox cleared")
	return nil
}
