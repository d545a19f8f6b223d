package audit

import (
	"context"
	"log/slog"
)

// LogAction records an audit entry for an operator action.
// details are emitted as structured attributes in key order.
func LogAction(logger *slog.Logger, action, resource string, details ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := append([]any{"action", action, "resource", resource}, details...)
	logger.Log(context.Background(), slog.LevelInfo, "audit", attrs...)
}

// Audit actions constants
const (
	ActionCreateUser        = "create_user"
	ActionDeleteUser        = "delete_user"
	ActionCreateEnvironment = "create_environment"
	ActionDeleteEnvironment = "delete_environment"
	ActionGrantPermission   = "grant_permission"
	ActionRevokePermission  = "revoke_permission"
	ActionRecordAccess      = "record_access"
	ActionSaveRegistry      = "save_registry"
	ActionLoadRegistry      = "load_registry"
)
