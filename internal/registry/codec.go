package registry

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nebari-dev/gatehouse/internal/models"
)

// Resource names, in load order.
const (
	ResourceEnvironments = "environments"
	ResourceUsers        = "users"
	ResourceLogs         = "logs"
)

const (
	fieldSep = ";"
	idSep    = ","
)

// localTimestamp is accepted for timestamps written without an offset.
const localTimestamp = "2006-01-02T15:04:05.999999999"

// environments: id;name
func encodeEnvironments(envs []*models.Environment) []byte {
	var buf bytes.Buffer
	for _, e := range envs {
		fmt.Fprintf(&buf, "%d;%s\n", e.ID, e.Name)
	}
	return buf.Bytes()
}

// users: id;name;envId,envId,...
func encodeUsers(users []*models.User) []byte {
	var buf bytes.Buffer
	for _, u := range users {
		perms := u.Permissions()
		ids := make([]string, len(perms))
		for i, id := range perms {
			ids[i] = strconv.Itoa(id)
		}
		fmt.Fprintf(&buf, "%d;%s;%s\n", u.ID, u.Name, strings.Join(ids, idSep))
	}
	return buf.Bytes()
}

// logs: timestamp;userId;environmentId;1|0, grouped by environment, oldest first
func encodeLogs(envs []*models.Environment) []byte {
	var buf bytes.Buffer
	for _, e := range envs {
		for _, entry := range e.History().Entries() {
			outcome := 0
			if entry.Granted {
				outcome = 1
			}
			fmt.Fprintf(&buf, "%s;%d;%d;%d\n",
				entry.Timestamp.Format(time.RFC3339Nano), entry.UserID, e.ID, outcome)
		}
	}
	return buf.Bytes()
}

// record is one non-blank line of a resource
type record struct {
	line   int
	fields []string
}

// splitRecords breaks a resource into records, skipping blank lines
func splitRecords(data []byte) []record {
	var out []record
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, record{line: i + 1, fields: strings.Split(line, fieldSep)})
	}
	return out
}

func parseID(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// parseIDList parses "1,2,3", silently skipping entries that are not integers
func parseIDList(s string) []int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(s, idSep) {
		if id, err := parseID(part); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(localTimestamp, s, time.Local)
}

type envRecord struct {
	id   int
	name string
}

func parseEnvironment(rec record) (envRecord, error) {
	if len(rec.fields) < 2 {
		return envRecord{}, fmt.Errorf("expected id;name, got %d field(s)", len(rec.fields))
	}
	id, err := parseID(rec.fields[0])
	if err != nil {
		return envRecord{}, fmt.Errorf("invalid environment id: %w", err)
	}
	return envRecord{id: id, name: rec.fields[1]}, nil
}

type userRecord struct {
	id     int
	name   string
	envIDs []int
}

func parseUser(rec record) (userRecord, error) {
	if len(rec.fields) < 2 {
		return userRecord{}, fmt.Errorf("expected id;name;permissions, got %d field(s)", len(rec.fields))
	}
	id, err := parseID(rec.fields[0])
	if err != nil {
		return userRecord{}, fmt.Errorf("invalid user id: %w", err)
	}
	u := userRecord{id: id, name: rec.fields[1]}
	if len(rec.fields) > 2 {
		u.envIDs = parseIDList(rec.fields[2])
	}
	return u, nil
}

type logRecord struct {
	envID int
	entry models.AccessLog
}

func parseLog(rec record) (logRecord, error) {
	if len(rec.fields) < 4 {
		return logRecord{}, fmt.Errorf("expected timestamp;user;environment;outcome, got %d field(s)", len(rec.fields))
	}
	ts, err := parseTimestamp(rec.fields[0])
	if err != nil {
		return logRecord{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	userID, err := parseID(rec.fields[1])
	if err != nil {
		return logRecord{}, fmt.Errorf("invalid user id: %w", err)
	}
	envID, err := parseID(rec.fields[2])
	if err != nil {
		return logRecord{}, fmt.Errorf("invalid environment id: %w", err)
	}
	outcome, err := parseID(rec.fields[3])
	if err != nil {
		return logRecord{}, fmt.Errorf("invalid outcome: %w", err)
	}
	return logRecord{
		envID: envID,
		entry: models.AccessLog{Timestamp: ts, UserID: userID, Granted: outcome == 1},
	}, nil
}
