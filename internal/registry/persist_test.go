package registry

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nebari-dev/gatehouse/internal/models"
	"github.com/nebari-dev/gatehouse/internal/storage"
)

// seedBackend writes raw resource contents into a memory backend.
func seedBackend(t *testing.T, resources map[string]string) *storage.MemoryBackend {
	t.Helper()
	b := storage.NewMemoryBackend()
	for name, content := range resources {
		if err := b.Write(context.Background(), name, []byte(content)); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	return b
}

func readResource(t *testing.T, b storage.Backend, name string) string {
	t.Helper()
	data, err := b.Read(context.Background(), name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestSaveFormat(t *testing.T) {
	r := newTestRegistry(t)
	mustAddEnvironment(t, r, 1, "Lab")
	mustAddEnvironment(t, r, 2, "Office")
	mustAddUser(t, r, 10, "Ada")
	mustAddUser(t, r, 11, "Grace")
	r.Grant(10, 2)
	r.Grant(10, 1)
	r.RecordAccess(11, 2) // 09:00:01 denied
	r.RecordAccess(10, 1) // 09:00:02 granted

	b := storage.NewMemoryBackend()
	if err := r.Save(context.Background(), b); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got, want := readResource(t, b, ResourceEnvironments), "1;Lab\n2;Office\n"; got != want {
		t.Errorf("environments = %q, want %q", got, want)
	}
	if got, want := readResource(t, b, ResourceUsers), "10;Ada;2,1\n11;Grace;\n"; got != want {
		t.Errorf("users = %q, want %q", got, want)
	}
	// grouped by environment, not globally by time
	wantLogs := "2024-03-01T09:00:02Z;10;1;1\n2024-03-01T09:00:01Z;11;2;0\n"
	if got := readResource(t, b, ResourceLogs); got != wantLogs {
		t.Errorf("logs = %q, want %q", got, wantLogs)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r := newTestRegistry(t, WithHistoryCap(5))
	mustAddEnvironment(t, r, 1, "Lab")
	mustAddEnvironment(t, r, 2, "Server Room")
	mustAddUser(t, r, 10, "Ada")
	mustAddUser(t, r, 11, "Grace")
	mustAddUser(t, r, 12, "Linus")
	r.Grant(10, 1)
	r.Grant(10, 2)
	r.Grant(12, 2)
	for i := 0; i < 8; i++ {
		r.RecordAccess(10+i%3, 1+i%2)
	}

	b := storage.NewMemoryBackend()
	if err := r.Save(context.Background(), b); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := newTestRegistry(t, WithHistoryCap(5))
	if err := loaded.Load(context.Background(), b); err != nil {
		t.Fatalf("Load: %v", err)
	}

	before, after := r.Snapshot(), loaded.Snapshot()
	if len(before.Users) != len(after.Users) {
		t.Fatalf("users: %d before, %d after", len(before.Users), len(after.Users))
	}
	for i := range before.Users {
		bu, au := before.Users[i], after.Users[i]
		if bu.ID != au.ID || bu.Name != au.Name || !slices.Equal(bu.Permissions, au.Permissions) {
			t.Errorf("user %d: before %+v, after %+v", i, bu, au)
		}
	}
	if len(before.Environments) != len(after.Environments) {
		t.Fatalf("environments: %d before, %d after", len(before.Environments), len(after.Environments))
	}
	for i := range before.Environments {
		be, ae := before.Environments[i], after.Environments[i]
		if be.ID != ae.ID || be.Name != ae.Name {
			t.Errorf("environment %d: before %+v, after %+v", i, be, ae)
		}
		if len(be.Logs) != len(ae.Logs) {
			t.Fatalf("environment %d logs: %d before, %d after", be.ID, len(be.Logs), len(ae.Logs))
		}
		for j := range be.Logs {
			bl, al := be.Logs[j], ae.Logs[j]
			if !bl.Timestamp.Equal(al.Timestamp) || bl.UserID != al.UserID || bl.Granted != al.Granted {
				t.Errorf("environment %d log %d: before %+v, after %+v", be.ID, j, bl, al)
			}
		}
	}
}

func TestLoadMissingResources(t *testing.T) {
	tests := []struct {
		name      string
		resources map[string]string
		users     int
		envs      int
	}{
		{"nothing stored", nil, 0, 0},
		{"only environments", map[string]string{ResourceEnvironments: "1;Lab\n"}, 0, 1},
		{"no logs", map[string]string{ResourceEnvironments: "1;Lab\n", ResourceUsers: "10;Ada;1\n"}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			if err := r.Load(context.Background(), seedBackend(t, tt.resources)); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(r.Users()) != tt.users || len(r.Environments()) != tt.envs {
				t.Errorf("got %d users, %d environments; want %d, %d",
					len(r.Users()), len(r.Environments()), tt.users, tt.envs)
			}
		})
	}
}

func TestLoadReplacesState(t *testing.T) {
	r := newTestRegistry(t)
	mustAddEnvironment(t, r, 7, "Old")
	mustAddUser(t, r, 70, "Old")

	b := seedBackend(t, map[string]string{ResourceEnvironments: "1;Lab\n"})
	if err := r.Load(context.Background(), b); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := r.FindEnvironment(7); ok {
		t.Error("environment from before Load survived")
	}
	if len(r.Users()) != 0 {
		t.Error("users from before Load survived")
	}
}

func TestLoadDropsDanglingReferences(t *testing.T) {
	b := seedBackend(t, map[string]string{
		ResourceEnvironments: "1;Lab\n",
		ResourceUsers:        "10;Ada;1,2,x\n",
		ResourceLogs: "2024-03-01T09:00:00Z;10;1;1\n" +
			"2024-03-01T09:00:01Z;99;1;1\n" + // user never existed
			"2024-03-01T09:00:02Z;10;5;0\n", // environment never existed
	})

	r := newTestRegistry(t)
	if err := r.Load(context.Background(), b); err != nil {
		t.Fatalf("Load: %v", err)
	}

	u, ok := r.FindUser(10)
	if !ok {
		t.Fatal("user 10 not loaded")
	}
	if got := u.Permissions(); !slices.Equal(got, []int{1}) {
		t.Errorf("permissions = %v, want [1]", got)
	}

	logs, _ := r.Logs(1, models.FilterAll)
	if len(logs) != 1 || logs[0].UserID != 10 || !logs[0].Granted {
		t.Errorf("logs = %+v, want the single resolvable entry", logs)
	}
}

func TestLoadAppliesHistoryCap(t *testing.T) {
	var logs strings.Builder
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		logs.WriteString(base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339Nano))
		logs.WriteString(";10;1;1\n")
	}
	b := seedBackend(t, map[string]string{
		ResourceEnvironments: "1;Lab\n",
		ResourceUsers:        "10;Ada;1\n",
		ResourceLogs:         logs.String(),
	})

	r := newTestRegistry(t, WithHistoryCap(4))
	if err := r.Load(context.Background(), b); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, _ := r.Logs(1, models.FilterAll)
	if len(got) != 4 {
		t.Fatalf("len(logs) = %d, want 4", len(got))
	}
	if want := base.Add(6 * time.Minute); !got[0].Timestamp.Equal(want) {
		t.Errorf("oldest kept = %v, want %v", got[0].Timestamp, want)
	}
}

func TestLoadToleratesBlankLinesAndCRLF(t *testing.T) {
	b := seedBackend(t, map[string]string{
		ResourceEnvironments: "\r\n1;Lab\r\n   \n2;Office\r\n",
		ResourceUsers:        "10;Ada\r\n\n",
	})

	r := newTestRegistry(t)
	if err := r.Load(context.Background(), b); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e, ok := r.FindEnvironment(2); !ok || e.Name != "Office" {
		t.Errorf("environment 2 = %v, %v", e, ok)
	}
	if u, ok := r.FindUser(10); !ok || u.Name != "Ada" || u.PermissionCount() != 0 {
		t.Errorf("user 10 = %v, %v", u, ok)
	}
}

func TestLoadOutcomeAndTimestampFormats(t *testing.T) {
	b := seedBackend(t, map[string]string{
		ResourceEnvironments: "1;Lab\n",
		ResourceUsers:        "10;Ada;1\n",
		ResourceLogs: "2024-03-01T09:00:00.1234567-03:00;10;1;1\n" +
			"2024-03-01T09:00:01.0000000;10;1;0\n" +
			"2024-03-01T09:00:02Z;10;1;2\n",
	})

	r := newTestRegistry(t)
	if err := r.Load(context.Background(), b); err != nil {
		t.Fatalf("Load: %v", err)
	}

	logs, _ := r.Logs(1, models.FilterAll)
	if len(logs) != 3 {
		t.Fatalf("len(logs) = %d, want 3", len(logs))
	}
	if !logs[0].Granted || logs[1].Granted || logs[2].Granted {
		t.Errorf("outcomes = %v %v %v, want true false false", logs[0].Granted, logs[1].Granted, logs[2].Granted)
	}
	if want := time.Date(2024, 3, 1, 12, 0, 0, 123456700, time.UTC); !logs[0].Timestamp.Equal(want) {
		t.Errorf("timestamp with offset = %v, want %v", logs[0].Timestamp, want)
	}
}

func TestLoadSkipsDuplicateRecords(t *testing.T) {
	b := seedBackend(t, map[string]string{
		ResourceEnvironments: "1;Lab\n1;Shadow\n",
		ResourceUsers:        "10;Ada;1\n10;Impostor;\n",
	})

	r := newTestRegistry(t)
	if err := r.Load(context.Background(), b); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.Environments()) != 1 || r.Environments()[0].Name != "Lab" {
		t.Errorf("environments = %v", r.Environments())
	}
	if len(r.Users()) != 1 || r.Users()[0].Name != "Ada" {
		t.Errorf("users = %v", r.Users())
	}
}

func TestLoadSkipsNegativeIDs(t *testing.T) {
	b := seedBackend(t, map[string]string{
		ResourceEnvironments: "0;Lobby\n-1;Void\n",
		ResourceUsers:        "0;Guest;0,-1\n-5;Ghost;0\n",
	})

	r := newTestRegistry(t)
	if err := r.Load(context.Background(), b); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.Environments()) != 1 || r.Environments()[0].ID != 0 {
		t.Errorf("environments = %v, want only [0] Lobby", r.Environments())
	}
	if len(r.Users()) != 1 || r.Users()[0].ID != 0 {
		t.Fatalf("users = %v, want only [0] Guest", r.Users())
	}
	if got := r.Users()[0].Permissions(); !slices.Equal(got, []int{0}) {
		t.Errorf("permissions = %v, want [0]", got)
	}

	// Everything that loaded can be re-created through the mutation API.
	fresh := newTestRegistry(t)
	for _, e := range r.Environments() {
		if err := fresh.AddEnvironment(fresh.NewEnvironment(e.ID, e.Name)); err != nil {
			t.Errorf("AddEnvironment(%d): %v", e.ID, err)
		}
	}
	for _, u := range r.Users() {
		if err := fresh.AddUser(models.NewUser(u.ID, u.Name)); err != nil {
			t.Errorf("AddUser(%d): %v", u.ID, err)
		}
	}
}

func TestSaveEnvironmentLiteral(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.AddEnvironment(&models.Environment{ID: 1, Name: "Lab"}); err != nil {
		t.Fatalf("AddEnvironment: %v", err)
	}
	mustAddUser(t, r, 10, "Ada")
	r.RecordAccess(10, 1)

	b := storage.NewMemoryBackend()
	if err := r.Save(context.Background(), b); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := readResource(t, b, ResourceLogs); !strings.HasSuffix(got, ";10;1;0\n") {
		t.Errorf("logs = %q", got)
	}
}

func TestLoadMalformedRecords(t *testing.T) {
	tests := []struct {
		name      string
		resources map[string]string
		resource  string
		line      int
	}{
		{"environment id", map[string]string{ResourceEnvironments: "1;Lab\nx;Bad\n"}, ResourceEnvironments, 2},
		{"environment fields", map[string]string{ResourceEnvironments: "1\n"}, ResourceEnvironments, 1},
		{"user id", map[string]string{ResourceUsers: "ten;Ada;\n"}, ResourceUsers, 1},
		{"log timestamp", map[string]string{ResourceLogs: "yesterday;1;1;1\n"}, ResourceLogs, 1},
		{"log outcome", map[string]string{ResourceLogs: "2024-03-01T09:00:00Z;1;1;yes\n"}, ResourceLogs, 1},
		{"log fields", map[string]string{ResourceLogs: "\n2024-03-01T09:00:00Z;1;1\n"}, ResourceLogs, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			mustAddEnvironment(t, r, 99, "Existing")

			err := r.Load(context.Background(), seedBackend(t, tt.resources))
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if perr.Resource != tt.resource || perr.Line != tt.line {
				t.Errorf("ParseError at %s:%d, want %s:%d", perr.Resource, perr.Line, tt.resource, tt.line)
			}
			if len(r.Environments()) != 0 || len(r.Users()) != 0 {
				t.Error("failed Load should leave the registry empty")
			}
		})
	}
}

type failingBackend struct {
	storage.Backend
	err error
}

func (f failingBackend) Read(context.Context, string) ([]byte, error) { return nil, f.err }

func (f failingBackend) Write(context.Context, string, []byte) error { return f.err }

func TestBackendErrorsPropagate(t *testing.T) {
	boom := errors.New("disk on fire")
	b := failingBackend{err: boom}

	r := newTestRegistry(t)
	mustAddEnvironment(t, r, 1, "Lab")

	if err := r.Save(context.Background(), b); !errors.Is(err, boom) {
		t.Errorf("Save: got %v, want wrapped backend error", err)
	}
	if err := r.Load(context.Background(), b); !errors.Is(err, boom) {
		t.Errorf("Load: got %v, want wrapped backend error", err)
	}
	if _, ok := r.FindEnvironment(1); !ok {
		t.Error("a Load that fails before parsing should not clear the registry")
	}
}

func TestSaveLoadThroughFileBackend(t *testing.T) {
	b := storage.NewFileBackend(t.TempDir())

	r := newTestRegistry(t)
	mustAddEnvironment(t, r, 1, "Lab")
	mustAddUser(t, r, 10, "Ada")
	r.Grant(10, 1)
	r.RecordAccess(10, 1)
	if err := r.Save(context.Background(), b); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := newTestRegistry(t)
	if err := loaded.Load(context.Background(), b); err != nil {
		t.Fatalf("Load: %v", err)
	}
	logs, _ := loaded.Logs(1, models.FilterGranted)
	if len(logs) != 1 {
		t.Errorf("granted logs after reload = %d, want 1", len(logs))
	}
}
