// Root command for the linkgraph CLI.
package main

import (
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagSnapshot  string
)

// configSnapshot holds the snapshot path loaded from config.yaml. Set by
// PersistentPreRunE so all subcommands can use it.
var configSnapshot string

var rootCmd = &cobra.Command{
	Use:     "linkgraph",
	Short:   "linkgraph inspects and maintains link-graph database snapshots",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		configSnapshot = cfg.GetString(cfgKeySnapshot)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $(CWD)/.linkgraph)")
	rootCmd.PersistentFlags().StringVar(&flagSnapshot, "snapshot", "", "snapshot file (default: from config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyCmd)
}

// snapshotPath resolves the snapshot file: the --snapshot flag wins over
// the configured default.
func snapshotPath() string {
	if flagSnapshot != "" {
		return flagSnapshot
	}
	if configSnapshot != "" {
		return configSnapshot
	}
	return "linkgraph.snap"
}
