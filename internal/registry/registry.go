// Package registry owns the users and environments of an installation,
// enforces their identity and permission invariants, and persists them.
package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nebari-dev/gatehouse/internal/audit"
	"github.com/nebari-dev/gatehouse/internal/models"
	"golang.org/x/text/unicode/norm"
)

// Registry holds users and environments in insertion order.
// It is not safe for concurrent use.
type Registry struct {
	users        []*models.User
	environments []*models.Environment

	historyCap int
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithHistoryCap sets how many access log entries each environment keeps
func WithHistoryCap(n int) Option {
	return func(r *Registry) { r.historyCap = n }
}

// WithClock overrides the clock used to timestamp access attempts
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the logger receiving audit records
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		historyCap: models.DefaultHistoryCap,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.historyCap <= 0 {
		r.historyCap = models.DefaultHistoryCap
	}
	return r
}

// HistoryCap returns the per-environment history capacity
func (r *Registry) HistoryCap() int { return r.historyCap }

// NewEnvironment builds an environment sized for this registry. It is not added.
func (r *Registry) NewEnvironment(id int, name string) *models.Environment {
	return models.NewEnvironment(id, name, r.historyCap)
}

// Users returns the registered users in insertion order
func (r *Registry) Users() []*models.User {
	return slices.Clone(r.users)
}

// Environments returns the registered environments in insertion order
func (r *Registry) Environments() []*models.Environment {
	return slices.Clone(r.environments)
}

// FindUser looks up a user by ID
func (r *Registry) FindUser(id int) (*models.User, bool) {
	for _, u := range r.users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// FindEnvironment looks up an environment by ID
func (r *Registry) FindEnvironment(id int) (*models.Environment, bool) {
	for _, e := range r.environments {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// AddUser registers a user. Returns a *DuplicateIDError if the ID is taken,
// and a *ValidationError for a negative ID, an unstorable name, or a
// permission naming an environment that is not registered.
func (r *Registry) AddUser(u *models.User) error {
	if err := validate("user", u.ID, u.Name); err != nil {
		return err
	}
	if _, ok := r.FindUser(u.ID); ok {
		return &DuplicateIDError{Kind: "user", ID: u.ID}
	}
	for _, envID := range u.Permissions() {
		if _, ok := r.FindEnvironment(envID); !ok {
			return &ValidationError{Message: fmt.Sprintf("user %d holds permission for unknown environment %d", u.ID, envID)}
		}
	}
	u.Name = normalizeName(u.Name)
	r.users = append(r.users, u)

	audit.LogAction(r.logger, audit.ActionCreateUser, userResource(u.ID), "name", u.Name)
	return nil
}

// RemoveUser deletes a user that holds no permissions.
// Returns false, leaving the user in place, when permissions remain.
func (r *Registry) RemoveUser(id int) (bool, error) {
	i := slices.IndexFunc(r.users, func(u *models.User) bool { return u.ID == id })
	if i < 0 {
		return false, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if r.users[i].PermissionCount() > 0 {
		return false, nil
	}
	r.users = slices.Delete(r.users, i, i+1)

	audit.LogAction(r.logger, audit.ActionDeleteUser, userResource(id))
	return true, nil
}

// AddEnvironment registers an environment. Returns a *DuplicateIDError if the
// ID is taken, and a *ValidationError for a negative ID or an unstorable name.
// The environment's history is resized to the registry's capacity.
func (r *Registry) AddEnvironment(e *models.Environment) error {
	if err := validate("environment", e.ID, e.Name); err != nil {
		return err
	}
	if _, ok := r.FindEnvironment(e.ID); ok {
		return &DuplicateIDError{Kind: "environment", ID: e.ID}
	}
	e.Name = normalizeName(e.Name)
	e.SetHistoryCap(r.historyCap)
	r.environments = append(r.environments, e)

	audit.LogAction(r.logger, audit.ActionCreateEnvironment, envResource(e.ID), "name", e.Name)
	return nil
}

// RemoveEnvironment deletes an environment and every permission pointing at it
func (r *Registry) RemoveEnvironment(id int) error {
	i := slices.IndexFunc(r.environments, func(e *models.Environment) bool { return e.ID == id })
	if i < 0 {
		return fmt.Errorf("environment %d: %w", id, ErrNotFound)
	}

	swept := 0
	for _, u := range r.users {
		if u.Revoke(id) {
			swept++
		}
	}
	r.environments = slices.Delete(r.environments, i, i+1)

	audit.LogAction(r.logger, audit.ActionDeleteEnvironment, envResource(id), "revoked_permissions", swept)
	return nil
}

// Grant gives the user access to the environment.
// Returns false if the permission already existed.
func (r *Registry) Grant(userID, envID int) (bool, error) {
	u, e, err := r.resolve(userID, envID)
	if err != nil {
		return false, err
	}
	if !u.Grant(e.ID) {
		return false, nil
	}

	audit.LogAction(r.logger, audit.ActionGrantPermission, userResource(u.ID), "environment_id", e.ID)
	return true, nil
}

// Revoke removes the user's access to the environment.
// Returns false if the user did not have it.
func (r *Registry) Revoke(userID, envID int) (bool, error) {
	u, e, err := r.resolve(userID, envID)
	if err != nil {
		return false, err
	}
	if !u.Revoke(e.ID) {
		return false, nil
	}

	audit.LogAction(r.logger, audit.ActionRevokePermission, userResource(u.ID), "environment_id", e.ID)
	return true, nil
}

// RecordAccess logs an access attempt by the user against the environment.
// The attempt is granted iff the user currently holds a permission for it.
func (r *Registry) RecordAccess(userID, envID int) (models.AccessLog, error) {
	u, e, err := r.resolve(userID, envID)
	if err != nil {
		return models.AccessLog{}, err
	}

	entry := models.AccessLog{
		Timestamp: r.now(),
		UserID:    u.ID,
		Granted:   u.HasPermission(e.ID),
	}
	e.RecordAccess(entry)

	audit.LogAction(r.logger, audit.ActionRecordAccess, envResource(e.ID),
		"user_id", u.ID,
		"granted", entry.Granted)
	return entry, nil
}

// Logs returns the environment's history filtered, oldest first
func (r *Registry) Logs(envID int, filter models.LogFilter) ([]models.AccessLog, error) {
	e, ok := r.FindEnvironment(envID)
	if !ok {
		return nil, fmt.Errorf("environment %d: %w", envID, ErrNotFound)
	}
	return e.Logs(filter), nil
}

// Reset drops every user and environment
func (r *Registry) Reset() {
	r.users = nil
	r.environments = nil
}

func (r *Registry) resolve(userID, envID int) (*models.User, *models.Environment, error) {
	u, ok := r.FindUser(userID)
	if !ok {
		return nil, nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	e, ok := r.FindEnvironment(envID)
	if !ok {
		return nil, nil, fmt.Errorf("environment %d: %w", envID, ErrNotFound)
	}
	return u, e, nil
}

func validate(kind string, id int, name string) error {
	if id < 0 {
		return &ValidationError{Message: fmt.Sprintf("%s id must not be negative, got %d", kind, id)}
	}
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Message: fmt.Sprintf("%s name must not be empty", kind)}
	}
	if strings.ContainsAny(name, ";\r\n") {
		return &ValidationError{Message: fmt.Sprintf("%s name must not contain ';' or line breaks", kind)}
	}
	return nil
}

func normalizeName(name string) string {
	return norm.NFC.String(name)
}

func userResource(id int) string { return fmt.Sprintf("user:%d", id) }

func envResource(id int) string { return fmt.Sprintf("env:%d", id) }
