package registry

import "github.com/nebari-dev/gatehouse/internal/models"

// Snapshot is a serializable view of the registry
type Snapshot struct {
	Users        []UserView        `json:"users" yaml:"users" toml:"users"`
	Environments []EnvironmentView `json:"environments" yaml:"environments" toml:"environments"`
}

// UserView is a user with its permitted environment IDs
type UserView struct {
	ID          int    `json:"id" yaml:"id" toml:"id"`
	Name        string `json:"name" yaml:"name" toml:"name"`
	Permissions []int  `json:"permissions" yaml:"permissions" toml:"permissions"`
}

// EnvironmentView is an environment with its access history, oldest first
type EnvironmentView struct {
	ID   int                `json:"id" yaml:"id" toml:"id"`
	Name string             `json:"name" yaml:"name" toml:"name"`
	Logs []models.AccessLog `json:"logs" yaml:"logs" toml:"logs"`
}

// NewUserView builds the view of a single user
func NewUserView(u *models.User) UserView {
	perms := u.Permissions()
	if perms == nil {
		perms = []int{}
	}
	return UserView{ID: u.ID, Name: u.Name, Permissions: perms}
}

// NewEnvironmentView builds the view of a single environment
func NewEnvironmentView(e *models.Environment) EnvironmentView {
	return EnvironmentView{ID: e.ID, Name: e.Name, Logs: e.History().Entries()}
}

// Snapshot captures the current users and environments
func (r *Registry) Snapshot() Snapshot {
	s := Snapshot{
		Users:        make([]UserView, 0, len(r.users)),
		Environments: make([]EnvironmentView, 0, len(r.environments)),
	}
	for _, u := range r.users {
		s.Users = append(s.Users, NewUserView(u))
	}
	for _, e := range r.environments {
		s.Environments = append(s.Environments, NewEnvironmentView(e))
	}
	return s
}
