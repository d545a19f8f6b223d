package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nebari-dev/gatehouse/internal/models"
	"github.com/nebari-dev/gatehouse/internal/registry"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  `Create, list, inspect and delete users.`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <id> <name>",
	Short: "Create a user",
	Long: `Create a user with a caller-chosen numeric ID.

Example:
  gatehouse user add 10 "Ada Lovelace"`,
	Args: cobra.ExactArgs(2),
	RunE: runUserAdd,
}

var userListMatch string
var userListJSON bool

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	Long: `List users in creation order.

Examples:
  gatehouse user list
  gatehouse user list --match "A*"`,
	Args: cobra.NoArgs,
	RunE: runUserList,
}

var userShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a user and its permissions",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserShow,
}

var userRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a user",
	Long: `Delete a user. A user can only be deleted once every permission it holds
has been revoked.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserRemove,
}

func init() {
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userRemoveCmd)

	userListCmd.Flags().StringVar(&userListMatch, "match", "", "Only list users whose name matches this glob")
	userListCmd.Flags().BoolVar(&userListJSON, "json", false, "Output as JSON")
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "user")
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), true, func(a *app) error {
		if err := a.registry.AddUser(models.NewUser(id, args[1])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %d\n", id)
		return nil
	})
}

func runUserList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), false, func(a *app) error {
		var views []registry.UserView
		for _, u := range a.registry.Users() {
			ok, err := matchName(userListMatch, u.Name)
			if err != nil {
				return err
			}
			if ok {
				views = append(views, registry.NewUserView(u))
			}
		}

		out := cmd.OutOrStdout()
		if userListJSON {
			if views == nil {
				views = []registry.UserView{}
			}
			return writeJSON(out, views)
		}
		if len(views) == 0 {
			fmt.Fprintln(out, "No users found")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPERMISSIONS")
		for _, v := range views {
			fmt.Fprintf(w, "%d\t%s\t%s\n", v.ID, v.Name, formatIDs(v.Permissions))
		}
		return w.Flush()
	})
}

func runUserShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "user")
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), false, func(a *app) error {
		u, ok := a.registry.FindUser(id)
		if !ok {
			return fmt.Errorf("user %d: %w", id, registry.ErrNotFound)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, u)
		perms := u.Permissions()
		if len(perms) == 0 {
			fmt.Fprintln(out, "No permissions")
			return nil
		}
		fmt.Fprintln(out, "Permitted environments:")
		for _, envID := range perms {
			if env, ok := a.registry.FindEnvironment(envID); ok {
				fmt.Fprintf(out, "  %s\n", env)
			} else {
				fmt.Fprintf(out, "  [%d]\n", envID)
			}
		}
		return nil
	})
}

func runUserRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "user")
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), true, func(a *app) error {
		removed, err := a.registry.RemoveUser(id)
		if err != nil {
			return err
		}
		if !removed {
			return errors.New("user still holds access permissions; revoke them first")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %d\n", id)
		return nil
	})
}

func formatIDs(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
