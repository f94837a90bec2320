// Package logging provides structured logging for fauxmo.
//
// This package wraps a global zap logger with convenience functions for the
// patterns used throughout the responders. It provides both general logging
// functions and protocol helpers for SSDP and HTTP traffic.
//
// # Log Levels
//
//   - Debug: raw request/response bytes, connection open/close
//   - Info: discovery searches answered, device actions
//   - Warn: failed plugin actions, unrecognized requests
//   - Error: listener failures, startup problems
//
// # Structured Logging
//
//	logging.Info("Device switched",
//	    zap.String("device", "kitchen light"),
//	    zap.String("state", "on"),
//	)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.InitializeWithOptions(logging.Options{
//	    Level: "debug",
//	    File:  "/var/log/fauxmo.log",
//	}); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Console output goes to stderr. When a file is configured, JSON lines are
// also written there and rotated by size.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize itself is
// not; call it once before starting goroutines.
package logging
