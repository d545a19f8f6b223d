package models

import (
	"fmt"
	"slices"
)

// User represents a person who may be granted access to environments
type User struct {
	ID          int
	Name        string
	permissions []int // environment IDs in grant order
}

// NewUser creates a user without permissions
func NewUser(id int, name string) *User {
	return &User{ID: id, Name: name}
}

// Grant adds a permission for the environment.
// Returns false if the user already had it.
func (u *User) Grant(envID int) bool {
	if u.HasPermission(envID) {
		return false
	}
	u.permissions = append(u.permissions, envID)
	return true
}

// Revoke removes the permission for the environment.
// Returns false if the user did not have it.
func (u *User) Revoke(envID int) bool {
	i := slices.Index(u.permissions, envID)
	if i < 0 {
		return false
	}
	u.permissions = slices.Delete(u.permissions, i, i+1)
	return true
}

// HasPermission checks if the user may access the environment
func (u *User) HasPermission(envID int) bool {
	return slices.Contains(u.permissions, envID)
}

// Permissions returns the permitted environment IDs in grant order
func (u *User) Permissions() []int {
	return slices.Clone(u.permissions)
}

// PermissionCount returns the number of permissions held
func (u *User) PermissionCount() int {
	return len(u.permissions)
}

func (u *User) String() string {
	return fmt.Sprintf("[%d] %s", u.ID, u.Name)
}
