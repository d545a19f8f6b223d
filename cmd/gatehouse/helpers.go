package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
)

// parseID parses a positional ID argument
func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q: must be an integer", what, arg)
	}
	return id, nil
}

// parseIDPair parses the <user-id> <env-id> arguments
func parseIDPair(args []string) (userID, envID int, err error) {
	if userID, err = parseID(args[0], "user"); err != nil {
		return 0, 0, err
	}
	if envID, err = parseID(args[1], "environment"); err != nil {
		return 0, 0, err
	}
	return userID, envID, nil
}

// matchName reports whether name matches the glob pattern; an empty pattern matches everything
func matchName(pattern, name string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	ok, err := doublestar.Match(pattern, name)
	if err != nil {
		return false, fmt.Errorf("invalid --match pattern %q: %w", pattern, err)
	}
	return ok, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
