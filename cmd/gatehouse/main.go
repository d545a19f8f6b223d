package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gatehouse",
	Short: "Gatehouse - access-control registry for users and environments",
	Long: `Gatehouse tracks users, the environments (rooms, labs, offices) they may
enter, and the most recent access attempts for each environment.

Running gatehouse without a command opens the interactive menu.`,
	Example: `  # Open the interactive menu
  gatehouse

  # Register an environment and a user, then grant access
  gatehouse env add 1 Lab
  gatehouse user add 10 Ada
  gatehouse grant 10 1

  # Record an attempt and review the denied ones
  gatehouse access 10 1
  gatehouse logs 1 --filter denied`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runShell,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "registry", Title: "Registry Commands:"},
		&cobra.Group{ID: "access", Title: "Access Commands:"},
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
	)

	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "", "Config file (default: ./config.yaml, ~/.config/gatehouse/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.dataDir, "data-dir", "", "Directory for the file storage backend")
	rootCmd.PersistentFlags().StringVar(&globalOpts.backend, "backend", "", "Storage backend: file, sqlite, postgres, valkey, memory")
	rootCmd.PersistentFlags().StringVar(&globalOpts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	shellCmd.GroupID = "registry"
	userCmd.GroupID = "registry"
	envCmd.GroupID = "registry"

	grantCmd.GroupID = "access"
	revokeCmd.GroupID = "access"
	accessCmd.GroupID = "access"
	logsCmd.GroupID = "access"

	policyCmd.GroupID = "admin"
	exportCmd.GroupID = "admin"

	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(accessCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
