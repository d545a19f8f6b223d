package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/nebari-dev/gatehouse/internal/audit"
	"github.com/nebari-dev/gatehouse/internal/models"
	"github.com/nebari-dev/gatehouse/internal/storage"
	"golang.org/x/sync/errgroup"
)

var resourceOrder = []string{ResourceEnvironments, ResourceUsers, ResourceLogs}

// Save writes environments, users and logs to the backend
func (r *Registry) Save(ctx context.Context, b storage.Backend) error {
	contents := map[string][]byte{
		ResourceEnvironments: encodeEnvironments(r.environments),
		ResourceUsers:        encodeUsers(r.users),
		ResourceLogs:         encodeLogs(r.environments),
	}
	for _, name := range resourceOrder {
		if err := b.Write(ctx, name, contents[name]); err != nil {
			return fmt.Errorf("saving %s: %w", name, err)
		}
	}

	audit.LogAction(r.logger, audit.ActionSaveRegistry, "registry",
		"users", len(r.users),
		"environments", len(r.environments))
	return nil
}

// Load replaces the registry contents with what the backend holds.
// Missing resources count as empty. Records with negative IDs are skipped,
// and permissions and log entries that refer to unknown IDs are dropped.
// On error the registry is left empty.
func (r *Registry) Load(ctx context.Context, b storage.Backend) error {
	data, err := fetchAll(ctx, b)
	if err != nil {
		return err
	}

	r.Reset()
	if err := r.restore(data); err != nil {
		r.Reset()
		return err
	}

	audit.LogAction(r.logger, audit.ActionLoadRegistry, "registry",
		"users", len(r.users),
		"environments", len(r.environments))
	return nil
}

// fetchAll reads every resource concurrently; parsing happens afterwards
func fetchAll(ctx context.Context, b storage.Backend) (map[string][]byte, error) {
	results := make([][]byte, len(resourceOrder))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range resourceOrder {
		g.Go(func() error {
			data, err := b.Read(gctx, name)
			if errors.Is(err, storage.ErrNotExist) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("loading %s: %w", name, err)
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(resourceOrder))
	for i, name := range resourceOrder {
		out[name] = results[i]
	}
	return out, nil
}

func (r *Registry) restore(data map[string][]byte) error {
	for _, rec := range splitRecords(data[ResourceEnvironments]) {
		er, err := parseEnvironment(rec)
		if err != nil {
			return &ParseError{Resource: ResourceEnvironments, Line: rec.line, Err: err}
		}
		if er.id < 0 {
			r.logger.Warn("Skipping environment record with negative id", "id", er.id, "line", rec.line)
			continue
		}
		if _, dup := r.FindEnvironment(er.id); dup {
			r.logger.Warn("Skipping duplicate environment record", "id", er.id, "line", rec.line)
			continue
		}
		r.environments = append(r.environments, r.NewEnvironment(er.id, er.name))
	}

	for _, rec := range splitRecords(data[ResourceUsers]) {
		ur, err := parseUser(rec)
		if err != nil {
			return &ParseError{Resource: ResourceUsers, Line: rec.line, Err: err}
		}
		if ur.id < 0 {
			r.logger.Warn("Skipping user record with negative id", "id", ur.id, "line", rec.line)
			continue
		}
		if _, dup := r.FindUser(ur.id); dup {
			r.logger.Warn("Skipping duplicate user record", "id", ur.id, "line", rec.line)
			continue
		}
		u := models.NewUser(ur.id, ur.name)
		for _, envID := range ur.envIDs {
			if _, ok := r.FindEnvironment(envID); ok {
				u.Grant(envID)
			} else {
				r.logger.Debug("Dropping permission for unknown environment", "user_id", ur.id, "environment_id", envID)
			}
		}
		r.users = append(r.users, u)
	}

	for _, rec := range splitRecords(data[ResourceLogs]) {
		lr, err := parseLog(rec)
		if err != nil {
			return &ParseError{Resource: ResourceLogs, Line: rec.line, Err: err}
		}
		_, userOK := r.FindUser(lr.entry.UserID)
		e, envOK := r.FindEnvironment(lr.envID)
		if !userOK || !envOK {
			r.logger.Debug("Dropping access log with unknown reference",
				"line", rec.line,
				"user_id", lr.entry.UserID,
				"environment_id", lr.envID)
			continue
		}
		e.RecordAccess(lr.entry)
	}
	return nil
}
