package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/nebari-dev/gatehouse/internal/models"
	"github.com/nebari-dev/gatehouse/internal/registry"
	"github.com/nebari-dev/gatehouse/internal/storage"
)

// runScript feeds lines to a fresh shell and returns the output, registry and backend.
func runScript(t *testing.T, lines ...string) (string, *registry.Registry, *storage.MemoryBackend) {
	t.Helper()

	quiet := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	reg := registry.New(registry.WithLogger(quiet))
	backend := storage.NewMemoryBackend()

	var out bytes.Buffer
	in := NewPlainReader(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)

	sh := New(reg, backend, in, &out, quiet)
	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String(), reg, backend
}

func TestShellLabScenario(t *testing.T) {
	out, reg, backend := runScript(t,
		"1", "1", "Lab", // create environment
		"4", "10", "Ada", // create user
		"7", "10", "1", // grant
		"9", "10", "1", // access -> authorized
		"6", "10", // delete refused
		"8", "10", "1", // revoke
		"9", "10", "1", // access -> denied
		"10", "1", "3", // all logs
		"0",
	)

	for _, want := range []string{
		"Environment created.",
		"User created.",
		"Permission granted.",
		"Access AUTHORIZED.",
		"Cannot delete: user still holds access permissions.",
		"Permission revoked.",
		"Access DENIED.",
		"Logs for [1] Lab:",
		"[10] Ada | AUTHORIZED",
		"[10] Ada | DENIED",
		"Saving data and exiting...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	logs, err := reg.Logs(1, models.FilterAll)
	if err != nil || len(logs) != 2 {
		t.Fatalf("logs = %v, %v; want 2 entries", logs, err)
	}

	saved, err := backend.Read(context.Background(), registry.ResourceUsers)
	if err != nil {
		t.Fatalf("users not saved on exit: %v", err)
	}
	if string(saved) != "10;Ada;\n" {
		t.Errorf("saved users = %q", saved)
	}
}

func TestShellReportsFailuresAndContinues(t *testing.T) {
	out, reg, _ := runScript(t,
		"1", "1", "Lab",
		"1", "1", "Again", // duplicate id
		"1", "abc", // invalid number
		"7", "99", "1", // unknown user
		"2", "5", // unknown environment
		"42", // unknown option
		"hello",
		"1", "2", "Office",
		"0",
	)

	for _, want := range []string{
		"Error: environment with id 1 already exists",
		"Error: invalid number.",
		"Error: user 99: not found",
		"Environment not found.",
		"Invalid option.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if len(reg.Environments()) != 2 {
		t.Errorf("environments = %d, want 2 (loop must keep going after errors)", len(reg.Environments()))
	}
}

func TestShellGrantRevokeNoOps(t *testing.T) {
	out, _, _ := runScript(t,
		"1", "1", "Lab",
		"4", "10", "Ada",
		"8", "10", "1",
		"7", "10", "1",
		"7", "10", "1",
		"0",
	)
	if !strings.Contains(out, "User did not have permission for this environment.") {
		t.Error("missing revoke no-op message")
	}
	if !strings.Contains(out, "User already had permission for this environment.") {
		t.Error("missing grant no-op message")
	}
}

func TestShellShowAndFilterLogs(t *testing.T) {
	out, _, _ := runScript(t,
		"1", "1", "Lab",
		"4", "10", "Ada",
		"9", "10", "1", // denied
		"10", "1", "1", // authorized only
		"5", "10",
		"3", "1", // delete environment
		"2", "1",
		"0",
	)
	if !strings.Contains(out, "No logs found.") {
		t.Error("authorized filter should find nothing")
	}
	if !strings.Contains(out, "[10] Ada\nNo permissions.") {
		t.Errorf("show user output unexpected:\n%s", out)
	}
	if !strings.Contains(out, "Environment deleted.") {
		t.Error("missing delete confirmation")
	}
}

func TestShellSavesOnEOF(t *testing.T) {
	_, _, backend := runScript(t, "1", "3", "Vault") // no explicit exit

	saved, err := backend.Read(context.Background(), registry.ResourceEnvironments)
	if err != nil {
		t.Fatalf("environments not saved at EOF: %v", err)
	}
	if string(saved) != "3;Vault\n" {
		t.Errorf("saved environments = %q", saved)
	}
}

func TestShellEOFMidCommand(t *testing.T) {
	_, reg, _ := runScript(t, "1", "3") // name never typed
	if len(reg.Environments()) != 0 {
		t.Error("half-entered command must not create anything")
	}
}

func TestShellAcceptsLongLines(t *testing.T) {
	long := strings.Repeat("A", 70000)
	_, reg, backend := runScript(t, "1", "1", "Lab", "4", "10", long, "0")

	u, ok := reg.FindUser(10)
	if !ok || u.Name != long {
		t.Fatal("user with a long name was not created")
	}
	saved, err := backend.Read(context.Background(), registry.ResourceEnvironments)
	if err != nil || string(saved) != "1;Lab\n" {
		t.Errorf("environments = %q, %v", saved, err)
	}
}

func TestPlainReaderFinalLineWithoutNewline(t *testing.T) {
	r := NewPlainReader(strings.NewReader("1\r\n2"), io.Discard)
	for _, want := range []string{"1", "2"} {
		got, err := r.ReadLine("")
		if err != nil || got != want {
			t.Fatalf("ReadLine() = %q, %v, want %q", got, err, want)
		}
	}
	if _, err := r.ReadLine(""); !errors.Is(err, io.EOF) {
		t.Errorf("ReadLine() after input = %v, want io.EOF", err)
	}
}

// failingReader replays lines and then fails with err
type failingReader struct {
	lines []string
	err   error
}

func (r *failingReader) ReadLine(string) (string, error) {
	if len(r.lines) == 0 {
		return "", r.err
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *failingReader) Close() error { return nil }

func TestShellSavesWhenInputFails(t *testing.T) {
	errBroken := errors.New("broken pipe")

	tests := []struct {
		name  string
		lines []string
	}{
		{"at menu", []string{"1", "1", "Lab"}},
		{"mid command", []string{"1", "1", "Lab", "4", "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
			reg := registry.New(registry.WithLogger(quiet))
			backend := storage.NewMemoryBackend()

			var out bytes.Buffer
			in := &failingReader{lines: tt.lines, err: errBroken}
			err := New(reg, backend, in, &out, quiet).Run(context.Background())
			if !errors.Is(err, errBroken) {
				t.Fatalf("Run() = %v, want the input error", err)
			}

			saved, readErr := backend.Read(context.Background(), registry.ResourceEnvironments)
			if readErr != nil || string(saved) != "1;Lab\n" {
				t.Errorf("environments = %q, %v; session was not saved", saved, readErr)
			}
			if strings.Contains(out.String(), "Error: reading input") {
				t.Errorf("input failure was reported as a command error:\n%s", out.String())
			}
		})
	}
}
