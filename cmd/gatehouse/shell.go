package main

import (
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nebari-dev/gatehouse/internal/shell"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open the interactive menu",
	Long: `Open the numbered menu for managing environments, users, permissions
and access logs. All changes are saved when you exit with option 0 or Ctrl-D.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, "session", uuid.NewString())
	if err != nil {
		return err
	}
	defer a.close()

	historyFile := ""
	if a.cfg.Storage.DataDir != "" {
		historyFile = filepath.Join(a.cfg.Storage.DataDir, ".shell_history")
	}
	in := shell.NewLineReader(historyFile)
	defer in.Close()

	a.logger.Info("Shell session started", "backend", a.cfg.Storage.Backend)

	return shell.New(a.registry, a.backend, in, cmd.OutOrStdout(), a.logger).Run(ctx)
}
