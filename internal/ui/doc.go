// Package ui renders the curated terminal output of the fauxmo CLI.
//
// Everything here follows a "print and exit" pattern built on Lipgloss;
// the only Bubble Tea program is the spinner shown while a blocking task
// such as SSDP discovery runs. Components:
//
//   - Header: command banner with title and parameters
//   - Table: device listings with colored on/off state
//   - Result: success, warning and failure boxes
//   - Confirm: y/N prompt in a warning box
//
// Logging is independent of this package. When the CLI prints curated
// output it keeps zap at warn level unless --log-level or -v ask for more.
package ui
