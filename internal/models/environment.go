package models

import "fmt"

// Environment represents a physical space whose access is controlled
type Environment struct {
	ID      int
	Name    string
	history *History
}

// NewEnvironment creates an environment with an empty history of the given capacity
func NewEnvironment(id int, name string, historyCap int) *Environment {
	return &Environment{
		ID:      id,
		Name:    name,
		history: NewHistory(historyCap),
	}
}

// RecordAccess appends an entry to the environment history
func (e *Environment) RecordAccess(entry AccessLog) {
	e.History().Push(entry)
}

// History returns the bounded access history. An environment built without
// NewEnvironment gets a default-sized history on first use.
func (e *Environment) History() *History {
	if e.history == nil {
		e.history = NewHistory(DefaultHistoryCap)
	}
	return e.history
}

// SetHistoryCap resizes the history, keeping the newest entries that fit
func (e *Environment) SetHistoryCap(capacity int) {
	h := NewHistory(capacity)
	if h.Cap() == e.History().Cap() {
		return
	}
	for _, entry := range e.history.Entries() {
		h.Push(entry)
	}
	e.history = h
}

// Logs returns the history entries that pass the filter, oldest first
func (e *Environment) Logs(filter LogFilter) []AccessLog {
	entries := e.History().Entries()
	if filter == FilterAll {
		return entries
	}
	out := entries[:0]
	for _, entry := range entries {
		if entry.Matches(filter) {
			out = append(out, entry)
		}
	}
	return out
}

func (e *Environment) String() string {
	return fmt.Sprintf("[%d] %s", e.ID, e.Name)
}
