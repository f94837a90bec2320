package main

import (
	"testing"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

func TestQuietCommand(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		want bool
	}{
		{runCmd, false},
		{rootCmd, false},
		{devicesCmd, true},
		{discoverCmd, true},
		{serviceCmd, true},
	}
	for _, tt := range tests {
		if got := quietCommand(tt.cmd); got != tt.want {
			t.Errorf("quietCommand(%s) = %v, want %v", tt.cmd.Name(), got, tt.want)
		}
	}
}

func TestServiceArgs(t *testing.T) {
	if err := serviceCmd.Args(serviceCmd, []string{"install"}); err != nil {
		t.Errorf("install rejected: %v", err)
	}
	if err := serviceCmd.Args(serviceCmd, []string{"reinstall"}); err == nil {
		t.Error("unknown action accepted")
	}
	if err := serviceCmd.Args(serviceCmd, nil); err == nil {
		t.Error("missing action accepted")
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		in   service.Status
		want string
	}{
		{service.StatusRunning, "running"},
		{service.StatusStopped, "stopped"},
		{service.StatusUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := statusString(tt.in); got != tt.want {
			t.Errorf("statusString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
