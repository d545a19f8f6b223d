package rbac

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/nebari-dev/gatehouse/internal/registry"
)

//go:embed model.conf
var modelConf string

// ActionAccess is the only action a permission grants
const ActionAccess = "access"

// Subject returns the policy subject for a user
func Subject(userID int) string {
	return fmt.Sprintf("user:%d", userID)
}

// Object returns the policy object for an environment
func Object(envID int) string {
	return fmt.Sprintf("env:%d", envID)
}

// Policies returns one policy row per permission held in the registry,
// in user order then grant order
func Policies(reg *registry.Registry) [][]string {
	var rules [][]string
	for _, u := range reg.Users() {
		for _, envID := range u.Permissions() {
			rules = append(rules, []string{Subject(u.ID), Object(envID), ActionAccess})
		}
	}
	return rules
}

// NewEnforcer builds an in-memory Casbin enforcer mirroring the registry permissions
func NewEnforcer(reg *registry.Registry, logger *slog.Logger) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	rules := Policies(reg)
	if len(rules) > 0 {
		if _, err := e.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("failed to load policies: %w", err)
		}
	}

	logger.Debug("RBAC enforcer initialized", "policies", len(rules))
	return e, nil
}

// CanAccess checks if the user may enter the environment
func CanAccess(e *casbin.Enforcer, userID, envID int) (bool, error) {
	return e.Enforce(Subject(userID), Object(envID), ActionAccess)
}

// WriteCSV writes policies in Casbin's CSV policy file format
func WriteCSV(w io.Writer, rules [][]string) error {
	for _, rule := range rules {
		if _, err := fmt.Fprintf(w, "p, %s\n", strings.Join(rule, ", ")); err != nil {
			return err
		}
	}
	return nil
}
