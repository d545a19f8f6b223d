package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nebari-dev/gatehouse/internal/registry"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:     "env",
	Aliases: []string{"environment"},
	Short:   "Manage environments",
	Long:    `Create, list, inspect and delete environments.`,
}

var envAddCmd = &cobra.Command{
	Use:   "add <id> <name>",
	Short: "Create an environment",
	Long: `Create an environment with a caller-chosen numeric ID.

Example:
  gatehouse env add 1 "Server Room"`,
	Args: cobra.ExactArgs(2),
	RunE: runEnvAdd,
}

var envListMatch string
var envListJSON bool

var envListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List environments",
	Long: `List environments in creation order.

Examples:
  gatehouse env list
  gatehouse env list --match "Lab*"`,
	Args: cobra.NoArgs,
	RunE: runEnvList,
}

var envShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvShow,
}

var envRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an environment",
	Long: `Delete an environment together with its access history.
Every user permission pointing at it is revoked.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnvRemove,
}

func init() {
	envCmd.AddCommand(envAddCmd)
	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envShowCmd)
	envCmd.AddCommand(envRemoveCmd)

	envListCmd.Flags().StringVar(&envListMatch, "match", "", "Only list environments whose name matches this glob")
	envListCmd.Flags().BoolVar(&envListJSON, "json", false, "Output as JSON")
}

func runEnvAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "environment")
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), true, func(a *app) error {
		if err := a.registry.AddEnvironment(a.registry.NewEnvironment(id, args[1])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created environment %d\n", id)
		return nil
	})
}

func runEnvList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), false, func(a *app) error {
		type envSummary struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
			Logs int    `json:"logs"`
		}

		var rows []envSummary
		for _, e := range a.registry.Environments() {
			ok, err := matchName(envListMatch, e.Name)
			if err != nil {
				return err
			}
			if ok {
				rows = append(rows, envSummary{ID: e.ID, Name: e.Name, Logs: e.History().Len()})
			}
		}

		out := cmd.OutOrStdout()
		if envListJSON {
			if rows == nil {
				rows = []envSummary{}
			}
			return writeJSON(out, rows)
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, "No environments found")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tLOGS")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\t%d\n", r.ID, r.Name, r.Logs)
		}
		return w.Flush()
	})
}

func runEnvShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "environment")
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), false, func(a *app) error {
		env, ok := a.registry.FindEnvironment(id)
		if !ok {
			return fmt.Errorf("environment %d: %w", id, registry.ErrNotFound)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, env)
		fmt.Fprintf(out, "Access logs stored: %d/%d\n", env.History().Len(), env.History().Cap())

		var holders []string
		for _, u := range a.registry.Users() {
			if u.HasPermission(id) {
				holders = append(holders, u.String())
			}
		}
		if len(holders) == 0 {
			fmt.Fprintln(out, "No users have access")
			return nil
		}
		fmt.Fprintln(out, "Users with access:")
		for _, h := range holders {
			fmt.Fprintf(out, "  %s\n", h)
		}
		return nil
	})
}

func runEnvRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "environment")
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), true, func(a *app) error {
		if err := a.registry.RemoveEnvironment(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted environment %d\n", id)
		return nil
	})
}
