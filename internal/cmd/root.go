// Package cmd wires the prism CLI: the long-running engine process and
// the read-only inspection commands that share its state directory.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aasc77/prism/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "prism",
	Short: "Three-stage work pipeline orchestrator",
	Long: `Prism drives tasks through a red/green/blue pipeline: a tester
writes failing tests, an implementer makes them pass, a cleaner
refactors. Workers are external processes coordinated through a
file-based mailbox and isolated git worktrees; finished phases are
merged forward automatically.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./prism.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Defaults first so they apply even without a config file.
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("prism")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/prism")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PRISM")
	// PRISM_ENGINE_POLL_INTERVAL_SECONDS for engine.poll_interval_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Missing config file is fine, defaults and env cover everything.
	_ = viper.ReadInConfig()
}
