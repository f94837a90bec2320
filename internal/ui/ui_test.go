package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestHeaderRender(t *testing.T) {
	out := NewHeader("devices", "fauxmo devices", map[string]string{
		"Config": "config.json",
		"Bind":   "0.0.0.0",
	}).SetWidth(80).Render()

	for _, want := range []string{"DEVICES", "fauxmo devices", "Config:", "config.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Bind:") > strings.Index(out, "Config:") {
		t.Error("params are not sorted")
	}
}

func TestResultRender(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{"success", NewSuccessResult("Service installed", map[string]string{"Platform": "linux-systemd"}), []string{"SUCCESS", "Service installed", "linux-systemd"}},
		{"warning", NewWarningResult("No devices found", nil), []string{"WARNING", "No devices found"}},
		{"failure", NewFailureResult("Discovery failed", errors.New("no route"), []string{"Check the network"}), []string{"FAILED", "Error: no route", "Troubleshooting:", "Check the network"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(80).Render()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Render() missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestTableRender(t *testing.T) {
	tbl := NewTable("NAME", "PORT", "STATE")
	tbl.StateColumn = 2
	tbl.AddRow("kitchen light", "12340", "on").AddRow("fan")

	if len(tbl.Rows[1]) != 3 {
		t.Fatalf("short row not padded: %v", tbl.Rows[1])
	}
	out := tbl.Render()
	for _, want := range []string{"NAME", "kitchen light", "12340", "on", "fan"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := Confirm(strings.NewReader(tt.input), &out, "Remove service", []string{"fauxmo stops"}); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Remove service") {
			t.Errorf("Confirm(%q) did not print the title", tt.input)
		}
	}
}

func TestRunWithSpinnerNonTerminal(t *testing.T) {
	var out bytes.Buffer
	called := false
	err := RunWithSpinner(context.Background(), &out, "Searching", func(context.Context) error {
		called = true
		return errors.New("boom")
	})
	if !called || err == nil || err.Error() != "boom" {
		t.Errorf("RunWithSpinner() = %v, called = %v", err, called)
	}
	if out.Len() != 0 {
		t.Errorf("non-terminal output = %q, want empty", out.String())
	}
}

func TestSpinnerModelUpdate(t *testing.T) {
	canceled := false
	m := newSpinnerModel("Searching", func() error { return nil }, func() { canceled = true })

	next, cmd := m.Update(taskDoneMsg{err: errors.New("timeout")})
	sm := next.(spinnerModel)
	if !sm.done || sm.err == nil || cmd == nil {
		t.Errorf("after taskDoneMsg: done=%v err=%v", sm.done, sm.err)
	}
	if sm.View() != "" {
		t.Errorf("View() after done = %q", sm.View())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if sm := next.(spinnerModel); !sm.interrupted || !canceled {
		t.Errorf("ctrl+c: interrupted=%v canceled=%v", sm.interrupted, canceled)
	}

	if v := m.View(); !strings.Contains(v, "Searching") {
		t.Errorf("View() = %q", v)
	}
}

func TestClampWidth(t *testing.T) {
	tests := []struct{ in, want int }{
		{10, MinTerminalWidth},
		{80, 80},
		{500, MaxContentWidth},
	}
	for _, tt := range tests {
		if got := clampWidth(tt.in); got != tt.want {
			t.Errorf("clampWidth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
