package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/nebari-dev/gatehouse/internal/models"
	"github.com/spf13/cobra"
)

var grantCmd = &cobra.Command{
	Use:   "grant <user-id> <env-id>",
	Short: "Allow a user into an environment",
	Args:  cobra.ExactArgs(2),
	RunE:  runGrant,
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <user-id> <env-id>",
	Short: "Withdraw a user's access to an environment",
	Args:  cobra.ExactArgs(2),
	RunE:  runRevoke,
}

var accessCmd = &cobra.Command{
	Use:   "access <user-id> <env-id>",
	Short: "Record an access attempt",
	Long: `Record an attempt by a user to enter an environment. The attempt is
authorized when the user currently holds a permission for the environment.
Each environment keeps only its most recent attempts.`,
	Args: cobra.ExactArgs(2),
	RunE: runAccess,
}

var logsFilter string
var logsJSON bool

var logsCmd = &cobra.Command{
	Use:   "logs <env-id>",
	Short: "Show an environment's access history",
	Long: `Show the stored access attempts for an environment, oldest first.

Examples:
  gatehouse logs 1
  gatehouse logs 1 --filter denied`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsFilter, "filter", "all", "Which attempts to show: all, granted, denied")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Output as JSON")
}

func runGrant(cmd *cobra.Command, args []string) error {
	userID, envID, err := parseIDPair(args)
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), true, func(a *app) error {
		granted, err := a.registry.Grant(userID, envID)
		if err != nil {
			return err
		}
		if granted {
			fmt.Fprintf(cmd.OutOrStdout(), "Granted user %d access to environment %d\n", userID, envID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "User %d already has access to environment %d\n", userID, envID)
		}
		return nil
	})
}

func runRevoke(cmd *cobra.Command, args []string) error {
	userID, envID, err := parseIDPair(args)
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), true, func(a *app) error {
		revoked, err := a.registry.Revoke(userID, envID)
		if err != nil {
			return err
		}
		if revoked {
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked access of user %d to environment %d\n", userID, envID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "User %d had no access to environment %d\n", userID, envID)
		}
		return nil
	})
}

func runAccess(cmd *cobra.Command, args []string) error {
	userID, envID, err := parseIDPair(args)
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), true, func(a *app) error {
		entry, err := a.registry.RecordAccess(userID, envID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", entry.Outcome())
		return nil
	})
}

func runLogs(cmd *cobra.Command, args []string) error {
	envID, err := parseID(args[0], "environment")
	if err != nil {
		return err
	}
	filter, ok := models.ParseLogFilter(logsFilter)
	if !ok {
		return fmt.Errorf("invalid --filter %q: use all, granted or denied", logsFilter)
	}

	return withApp(cmd.Context(), false, func(a *app) error {
		logs, err := a.registry.Logs(envID, filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if logsJSON {
			if logs == nil {
				logs = []models.AccessLog{}
			}
			return writeJSON(out, logs)
		}
		if len(logs) == 0 {
			fmt.Fprintln(out, "No logs found")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tUSER\tOUTCOME")
		for _, entry := range logs {
			who := fmt.Sprintf("[%d] (removed user)", entry.UserID)
			if u, ok := a.registry.FindUser(entry.UserID); ok {
				who = u.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Timestamp.Format(time.RFC3339), who, entry.Outcome())
		}
		return w.Flush()
	})
}
