// Package shell implements the numbered operator menu that drives a registry.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nebari-dev/gatehouse/internal/models"
	"github.com/nebari-dev/gatehouse/internal/registry"
	"github.com/nebari-dev/gatehouse/internal/storage"
)

const menu = `
==== GATEHOUSE ====
 0. Exit (save)
 1. Create environment
 2. Show environment
 3. Delete environment
 4. Create user
 5. Show user
 6. Delete user
 7. Grant access permission
 8. Revoke access permission
 9. Record access
10. Show access logs
`

// timeLayout is how log timestamps are shown to the operator
const timeLayout = "2006-01-02 15:04:05"

// errInvalidNumber aborts the current command when the operator types a non-integer
var errInvalidNumber = errors.New("invalid number")

// inputError marks a failure of the input source itself, which ends the session
type inputError struct{ err error }

func (e *inputError) Error() string { return "reading input: " + e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

// Shell drives a registry from operator input and saves it on exit
type Shell struct {
	reg     *registry.Registry
	backend storage.Backend
	in      LineReader
	out     io.Writer
	logger  *slog.Logger
}

// New creates a shell over reg; state is written to backend on exit
func New(reg *registry.Registry, backend storage.Backend, in LineReader, out io.Writer, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{reg: reg, backend: backend, in: in, out: out, logger: logger}
}

// Run shows the menu until the operator exits or input ends, then saves.
// Command failures are reported and the loop continues. A failing input
// source still saves before its error is returned.
func (s *Shell) Run(ctx context.Context) error {
	var readErr error
	for {
		fmt.Fprint(s.out, menu)
		choice, err := s.in.ReadLine("Choose an option: ")
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = &inputError{err: err}
			}
			break
		}

		option, convErr := strconv.Atoi(strings.TrimSpace(choice))
		if convErr != nil {
			fmt.Fprintln(s.out, "Invalid option.")
			continue
		}
		if option == 0 {
			break
		}

		s.logger.Debug("Menu option selected", "option", option)
		if err := s.dispatch(option); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var inErr *inputError
			if errors.As(err, &inErr) {
				readErr = inErr
				break
			}
			if errors.Is(err, errInvalidNumber) {
				fmt.Fprintln(s.out, "Error: invalid number.")
				continue
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}

	fmt.Fprintln(s.out, "Saving data and exiting...")
	if err := s.reg.Save(ctx, s.backend); err != nil {
		return errors.Join(readErr, fmt.Errorf("saving registry: %w", err))
	}
	return readErr
}

func (s *Shell) dispatch(option int) error {
	switch option {
	case 1:
		return s.createEnvironment()
	case 2:
		return s.showEnvironment()
	case 3:
		return s.deleteEnvironment()
	case 4:
		return s.createUser()
	case 5:
		return s.showUser()
	case 6:
		return s.deleteUser()
	case 7:
		return s.grant()
	case 8:
		return s.revoke()
	case 9:
		return s.recordAccess()
	case 10:
		return s.showLogs()
	default:
		fmt.Fprintln(s.out, "Invalid option.")
		return nil
	}
}

// wrapInput leaves EOF as is so it ends the session like option 0
func wrapInput(err error) error {
	if errors.Is(err, io.EOF) {
		return err
	}
	return &inputError{err: err}
}

func (s *Shell) readInt(prompt string) (int, error) {
	line, err := s.in.ReadLine(prompt)
	if err != nil {
		return 0, wrapInput(err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, errInvalidNumber
	}
	return n, nil
}

func (s *Shell) readText(prompt string) (string, error) {
	line, err := s.in.ReadLine(prompt)
	if err != nil {
		return "", wrapInput(err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Shell) createEnvironment() error {
	id, err := s.readInt("Environment ID: ")
	if err != nil {
		return err
	}
	name, err := s.readText("Environment name: ")
	if err != nil {
		return err
	}
	if err := s.reg.AddEnvironment(s.reg.NewEnvironment(id, name)); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Environment created.")
	return nil
}

func (s *Shell) showEnvironment() error {
	id, err := s.readInt("Environment ID: ")
	if err != nil {
		return err
	}
	env, ok := s.reg.FindEnvironment(id)
	if !ok {
		fmt.Fprintln(s.out, "Environment not found.")
		return nil
	}
	fmt.Fprintln(s.out, env)
	fmt.Fprintf(s.out, "Access logs stored: %d/%d\n", env.History().Len(), env.History().Cap())
	return nil
}

func (s *Shell) deleteEnvironment() error {
	id, err := s.readInt("Environment ID: ")
	if err != nil {
		return err
	}
	if err := s.reg.RemoveEnvironment(id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			fmt.Fprintln(s.out, "Environment not found.")
			return nil
		}
		return err
	}
	fmt.Fprintln(s.out, "Environment deleted. Permissions pointing to it were revoked.")
	return nil
}

func (s *Shell) createUser() error {
	id, err := s.readInt("User ID: ")
	if err != nil {
		return err
	}
	name, err := s.readText("User name: ")
	if err != nil {
		return err
	}
	if err := s.reg.AddUser(models.NewUser(id, name)); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "User created.")
	return nil
}

func (s *Shell) showUser() error {
	id, err := s.readInt("User ID: ")
	if err != nil {
		return err
	}
	u, ok := s.reg.FindUser(id)
	if !ok {
		fmt.Fprintln(s.out, "User not found.")
		return nil
	}
	fmt.Fprintln(s.out, u)

	perms := u.Permissions()
	if len(perms) == 0 {
		fmt.Fprintln(s.out, "No permissions.")
		return nil
	}
	fmt.Fprintln(s.out, "Permitted environments:")
	for _, envID := range perms {
		if env, ok := s.reg.FindEnvironment(envID); ok {
			fmt.Fprintf(s.out, " - %s\n", env)
		} else {
			fmt.Fprintf(s.out, " - [%d]\n", envID)
		}
	}
	return nil
}

func (s *Shell) deleteUser() error {
	id, err := s.readInt("User ID: ")
	if err != nil {
		return err
	}
	removed, err := s.reg.RemoveUser(id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			fmt.Fprintln(s.out, "User not found.")
			return nil
		}
		return err
	}
	if !removed {
		fmt.Fprintln(s.out, "Cannot delete: user still holds access permissions.")
		return nil
	}
	fmt.Fprintln(s.out, "User deleted.")
	return nil
}

func (s *Shell) readPair() (userID, envID int, err error) {
	if userID, err = s.readInt("User ID: "); err != nil {
		return 0, 0, err
	}
	if envID, err = s.readInt("Environment ID: "); err != nil {
		return 0, 0, err
	}
	return userID, envID, nil
}

func (s *Shell) grant() error {
	userID, envID, err := s.readPair()
	if err != nil {
		return err
	}
	granted, err := s.reg.Grant(userID, envID)
	if err != nil {
		return err
	}
	if granted {
		fmt.Fprintln(s.out, "Permission granted.")
	} else {
		fmt.Fprintln(s.out, "User already had permission for this environment.")
	}
	return nil
}

func (s *Shell) revoke() error {
	userID, envID, err := s.readPair()
	if err != nil {
		return err
	}
	revoked, err := s.reg.Revoke(userID, envID)
	if err != nil {
		return err
	}
	if revoked {
		fmt.Fprintln(s.out, "Permission revoked.")
	} else {
		fmt.Fprintln(s.out, "User did not have permission for this environment.")
	}
	return nil
}

func (s *Shell) recordAccess() error {
	userID, envID, err := s.readPair()
	if err != nil {
		return err
	}
	entry, err := s.reg.RecordAccess(userID, envID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Access %s.\n", entry.Outcome())
	return nil
}

func (s *Shell) showLogs() error {
	envID, err := s.readInt("Environment ID: ")
	if err != nil {
		return err
	}
	env, ok := s.reg.FindEnvironment(envID)
	if !ok {
		fmt.Fprintln(s.out, "Environment not found.")
		return nil
	}

	fmt.Fprintln(s.out, "Filter: 1 = authorized, 2 = denied, 3 = all")
	choice, err := s.readInt("Filter: ")
	if err != nil {
		return err
	}
	filter := models.FilterAll
	switch choice {
	case 1:
		filter = models.FilterGranted
	case 2:
		filter = models.FilterDenied
	}

	logs := env.Logs(filter)
	if len(logs) == 0 {
		fmt.Fprintln(s.out, "No logs found.")
		return nil
	}
	fmt.Fprintf(s.out, "Logs for %s:\n", env)
	for _, entry := range logs {
		who := fmt.Sprintf("[%d] (removed user)", entry.UserID)
		if u, ok := s.reg.FindUser(entry.UserID); ok {
			who = u.String()
		}
		fmt.Fprintf(s.out, "%s | %s | %s\n", entry.Timestamp.Format(timeLayout), who, entry.Outcome())
	}
	return nil
}
