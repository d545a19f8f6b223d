package models

import "time"

// LogFilter selects which access log entries to return
type LogFilter int

const (
	FilterAll LogFilter = iota
	FilterGranted
	FilterDenied
)

// ParseLogFilter maps a filter name ("all", "granted", "denied") to a LogFilter
func ParseLogFilter(s string) (LogFilter, bool) {
	switch s {
	case "", "all":
		return FilterAll, true
	case "granted", "authorized":
		return FilterGranted, true
	case "denied":
		return FilterDenied, true
	}
	return FilterAll, false
}

func (f LogFilter) String() string {
	switch f {
	case FilterGranted:
		return "granted"
	case FilterDenied:
		return "denied"
	default:
		return "all"
	}
}

// AccessLog is one access attempt against an environment.
// The user is referenced by ID and resolved through the registry.
type AccessLog struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	UserID    int       `json:"user_id" yaml:"user_id" toml:"user_id"`
	Granted   bool      `json:"granted" yaml:"granted" toml:"granted"`
}

// Matches reports whether the entry passes the filter
func (l AccessLog) Matches(f LogFilter) bool {
	switch f {
	case FilterGranted:
		return l.Granted
	case FilterDenied:
		return !l.Granted
	default:
		return true
	}
}

// Outcome returns the display label for the entry
func (l AccessLog) Outcome() string {
	if l.Granted {
		return "AUTHORIZED"
	}
	return "DENIED"
}
