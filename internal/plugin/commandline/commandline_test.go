package commandline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/neuhausf/fauxmo/internal/plugin"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("commands use a POSIX shell")
	}
}

func TestOnOffRunCommands(t *testing.T) {
	skipOnWindows(t)
	marker := filepath.Join(t.TempDir(), "state")

	p, err := New(map[string]any{
		"name":      "printer",
		"on_cmd":    "touch " + marker,
		"off_cmd":   "rm -f " + marker,
		"state_cmd": "test -f " + marker,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if got := p.State(ctx); got != plugin.StateOff {
		t.Errorf("State() before on = %v, want off", got)
	}

	if err := plugin.TurnOn(ctx, p); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("on_cmd did not run: %v", err)
	}
	if got := p.State(ctx); got != plugin.StateOn {
		t.Errorf("State() after on = %v, want on", got)
	}

	if err := plugin.TurnOff(ctx, p); err != nil {
		t.Fatalf("Off() error = %v", err)
	}
	if got := p.State(ctx); got != plugin.StateOff {
		t.Errorf("State() after off = %v, want off", got)
	}
}

func TestCommandFailure(t *testing.T) {
	skipOnWindows(t)

	p, err := New(map[string]any{"name": "x", "on_cmd": "exit 3", "off_cmd": "true"})
	if err != nil {
		t.Fatal(err)
	}

	err = plugin.TurnOn(context.Background(), p)
	if !plugin.IsType(err, plugin.ErrTypeCommand) {
		t.Fatalf("On() error = %v, want command error", err)
	}
	var pErr *plugin.Error
	if !errors.As(err, &pErr) || pErr.StatusCode != 3 {
		t.Errorf("exit code = %v, want 3", err)
	}
	if p.Latest() != plugin.StateOff {
		t.Errorf("Latest() = %v, want off", p.Latest())
	}
}

func TestCommandTimeout(t *testing.T) {
	skipOnWindows(t)

	p, err := New(map[string]any{"name": "x", "on_cmd": "sleep 5", "off_cmd": "true", "timeout": 0.1})
	if err != nil {
		t.Fatal(err)
	}
	err = p.On(context.Background())
	if !plugin.IsType(err, plugin.ErrTypeTimeout) {
		t.Errorf("On() error = %v, want timeout", err)
	}
}

func TestStateWithoutCommand(t *testing.T) {
	tests := []struct {
		name string
		fake bool
		want plugin.State
	}{
		{"unknown", false, plugin.StateUnknown},
		{"fake", true, plugin.StateOn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(map[string]any{
				"name": "x", "on_cmd": "true", "off_cmd": "true",
				"use_fake_state": tt.fake, "initial_state": "on",
			})
			if err != nil {
				t.Fatal(err)
			}
			if got := p.State(context.Background()); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewRequiresCommands(t *testing.T) {
	_, err := New(map[string]any{"name": "x", "on_cmd": "true"})
	if err == nil || !strings.Contains(err.Error(), "on_cmd and off_cmd are required") {
		t.Errorf("New() error = %v", err)
	}
}
