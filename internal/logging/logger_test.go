package logging

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{" error ", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLevelFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "debug")

	got, err := ParseLevel("")
	if err != nil {
		t.Fatalf("ParseLevel() error = %v", err)
	}
	if got != zapcore.DebugLevel {
		t.Errorf("ParseLevel(\"\") = %v, want debug", got)
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	for count, want := range map[int]string{0: "warn", 1: "info", 2: "debug", 5: "debug"} {
		if got := LevelFromVerbosity(count); got != want {
			t.Errorf("LevelFromVerbosity(%d) = %q, want %q", count, got, want)
		}
	}
}

func TestInitializeWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fauxmo.log")
	if err := InitializeWithOptions(Options{Level: "debug", File: path}); err != nil {
		t.Fatalf("InitializeWithOptions() error = %v", err)
	}
	t.Cleanup(func() { SetLogger(nil) })

	if !DebugEnabled() {
		t.Error("DebugEnabled() = false after initializing at debug")
	}
}

func TestHelpersWriteFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	LogHTTPRequest("10.0.0.2:5000", "lamp", "POST", "/upnp/control/basicevent1", "GetBinaryState")
	LogSSDPSearch("10.0.0.2:5001", "upnp:rootdevice", 2, 3)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["soap_action"]; got != "GetBinaryState" {
		t.Errorf("soap_action = %v, want GetBinaryState", got)
	}
	if got := entries[1].ContextMap()["devices"]; got != int64(3) {
		t.Errorf("devices = %v, want 3", got)
	}
}

func TestASCIIDump(t *testing.T) {
	got := asciiDump([]byte("OK\r\n\x00\xff"))
	if got != "OK\r\n.." {
		t.Errorf("asciiDump() = %q, want %q", got, "OK\r\n..")
	}
	if asciiDump(nil) != "" {
		t.Error("asciiDump(nil) should be empty")
	}
}
