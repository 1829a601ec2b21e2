package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, rotation RotationConfig) (*FileLogger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := NewFileLogger(path, rotation)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestLogAndQuery(t *testing.T) {
	l, _ := newTestLogger(t, RotationConfig{})

	events := []*Event{
		NewEvent("admin", "192.0.2.10", "set_vlan").WithPorts([]string{"10GE1/0/1"}).WithSuccess(),
		NewEvent("admin", "192.0.2.10", "open_port").WithError(os.ErrDeadlineExceeded),
		NewEvent("ops", "192.0.2.20", "set_vlan").WithSuccess(),
	}
	for _, e := range events {
		if err := l.Log(e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got, err := l.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].Operation != "set_vlan" || got[0].Ports[0] != "10GE1/0/1" {
		t.Errorf("event[0] = %+v", got[0])
	}
}

func TestQueryFilters(t *testing.T) {
	l, _ := newTestLogger(t, RotationConfig{})

	l.Log(NewEvent("admin", "192.0.2.10", "set_vlan").WithSuccess())
	l.Log(NewEvent("admin", "192.0.2.10", "shutdown_port").WithError(os.ErrPermission))
	l.Log(NewEvent("ops", "192.0.2.20", "set_vlan").WithSuccess())

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by device", Filter{Device: "192.0.2.10"}, 2},
		{"by user", Filter{User: "ops"}, 1},
		{"by operation", Filter{Operation: "set_vlan"}, 2},
		{"failures only", Filter{FailureOnly: true}, 1},
		{"successes only", Filter{SuccessOnly: true}, 2},
		{"limit", Filter{Limit: 1}, 1},
		{"offset past end", Filter{Offset: 10}, 0},
		{"no match", Filter{Device: "198.51.100.1"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestQueryTimeWindow(t *testing.T) {
	l, _ := newTestLogger(t, RotationConfig{})

	old := NewEvent("admin", "192.0.2.10", "set_vlan")
	old.Timestamp = time.Now().Add(-2 * time.Hour)
	l.Log(old)
	l.Log(NewEvent("admin", "192.0.2.10", "set_vlan").WithSuccess())

	got, err := l.Query(Filter{StartTime: time.Now().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d events, want 1 inside the window", len(got))
	}
}

func TestRotation(t *testing.T) {
	l, path := newTestLogger(t, RotationConfig{MaxSize: 1, MaxBackups: 2})

	// MaxSize 1 forces a rotation on every write after the first; the
	// backup cap must hold even when rotations land within one second.
	for i := 0; i < 5; i++ {
		if err := l.Log(NewEvent("admin", "192.0.2.10", "set_vlan")); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	matches, err := filepath.Glob(path + ".*")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("got %d backups, want exactly 2", len(matches))
	}
}

func TestQuerySpansRotatedFiles(t *testing.T) {
	l, _ := newTestLogger(t, RotationConfig{MaxSize: 1, MaxBackups: 10})

	ops := []string{"set_vlan", "set_limit", "open_port", "save"}
	for _, op := range ops {
		if err := l.Log(NewEvent("admin", "192.0.2.10", op)); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got, err := l.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != len(ops) {
		t.Fatalf("got %d events across rotated files, want %d", len(got), len(ops))
	}
	for i, op := range ops {
		if got[i].Operation != op {
			t.Errorf("event[%d].Operation = %q, want %q (write order)", i, got[i].Operation, op)
		}
	}
}

func TestDefaultLoggerUnconfiguredIsNoop(t *testing.T) {
	if err := Log(NewEvent("admin", "192.0.2.10", "save")); err != nil {
		t.Errorf("Log without default logger: %v", err)
	}
	events, err := Query(Filter{})
	if err != nil {
		t.Errorf("Query without default logger: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want none", len(events))
	}
}

func TestMalformedLinesAreSkipped(t *testing.T) {
	l, path := newTestLogger(t, RotationConfig{})
	l.Log(NewEvent("admin", "192.0.2.10", "set_vlan").WithSuccess())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("not json\n")
	f.Close()

	got, err := l.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d events, want 1", len(got))
	}
}
