package main

import (
	"fmt"

	"github.com/nebari-dev/gatehouse/internal/rbac"
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect permissions as Casbin policies",
	Long: `Mirror the registry permissions into a Casbin policy set. Use this to
feed door controllers or other Casbin-aware tools.`,
}

var policyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print permissions in Casbin CSV policy format",
	Args:  cobra.NoArgs,
	RunE:  runPolicyExport,
}

var policyCheckCmd = &cobra.Command{
	Use:   "check <user-id> <env-id>",
	Short: "Evaluate access without recording an attempt",
	Args:  cobra.ExactArgs(2),
	RunE:  runPolicyCheck,
}

func init() {
	policyCmd.AddCommand(policyExportCmd)
	policyCmd.AddCommand(policyCheckCmd)
}

func runPolicyExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), false, func(a *app) error {
		return rbac.WriteCSV(cmd.OutOrStdout(), rbac.Policies(a.registry))
	})
}

func runPolicyCheck(cmd *cobra.Command, args []string) error {
	userID, envID, err := parseIDPair(args)
	if err != nil {
		return err
	}

	return withApp(cmd.Context(), false, func(a *app) error {
		e, err := rbac.NewEnforcer(a.registry, a.logger)
		if err != nil {
			return err
		}
		allowed, err := rbac.CanAccess(e, userID, envID)
		if err != nil {
			return fmt.Errorf("evaluating policy: %w", err)
		}
		if allowed {
			fmt.Fprintln(cmd.OutOrStdout(), "allow")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "deny")
		}
		return nil
	})
}
