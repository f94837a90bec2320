package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neuhausf/fauxmo/internal/plugin"
)

func TestStateStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")

	s, err := OpenStateStore(path)
	if err != nil {
		t.Fatalf("OpenStateStore() error = %v", err)
	}
	s.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC) }

	if _, ok := s.Get("serial-1"); ok {
		t.Error("Get() on empty store returned ok")
	}

	s.StateChanged("lamp", "serial-1", plugin.StateOn)
	if err := s.Set("fan", "serial-2", plugin.StateOff); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reopened, err := OpenStateStore(path)
	if err != nil {
		t.Fatalf("OpenStateStore() error = %v", err)
	}
	if got, ok := reopened.Get("serial-1"); !ok || got != plugin.StateOn {
		t.Errorf("Get(serial-1) = %v, %v; want on", got, ok)
	}
	if got, ok := reopened.Get("serial-2"); !ok || got != plugin.StateOff {
		t.Errorf("Get(serial-2) = %v, %v; want off", got, ok)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "name: lamp") || !strings.Contains(string(data), "changed: 2024-01-02T03:04:05Z") {
		t.Errorf("state file =\n%s", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestOpenStateStoreErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("devices: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenStateStore(bad); err == nil {
		t.Error("OpenStateStore() should fail on invalid YAML")
	}

	future := filepath.Join(dir, "future.yaml")
	if err := os.WriteFile(future, []byte("version: 9\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenStateStore(future); err == nil {
		t.Error("OpenStateStore() should reject unknown versions")
	}
}

func TestStateStoreIgnoresUnknownValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	content := "version: 1\ndevices:\n  abc:\n    name: lamp\n    state: dimmed\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := OpenStateStore(path)
	if err != nil {
		t.Fatalf("OpenStateStore() error = %v", err)
	}
	if _, ok := s.Get("abc"); ok {
		t.Error("Get() should not report an unknown persisted state")
	}
}
