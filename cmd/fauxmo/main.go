// Fauxmo emulates Belkin WeMo Insight switches so that voice assistants
// such as Amazon Echo can discover and control arbitrary devices on the
// local network.
//
// Every configured device gets its own HTTP port answering the WeMo UPnP
// protocol; a shared SSDP responder makes them discoverable. The work
// behind "on" and "off" is done by a plugin: HTTP requests, shell
// commands, MQTT messages or Home Assistant service calls.
//
// Usage:
//
//	fauxmo [command] [flags]
//
// Running without a command is the same as "fauxmo run".
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	verbosity  int
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "fauxmo",
	Short: "Emulated Belkin WeMo devices for voice assistants",
	Long: `Fauxmo makes devices controllable by Amazon Echo and other WeMo-aware
assistants by emulating Belkin WeMo Insight switches on the local network.

Devices are defined in a JSON or YAML config file. Without --config, fauxmo
looks for config.json in the current directory, ~/.fauxmo and /etc/fauxmo.

If no command is specified, fauxmo runs in the foreground.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runRun,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("fauxmo {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (searched for when empty)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides -v")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file, rotated")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging picks the level from --log-level, then -v, then
// FAUXMO_LOG_LEVEL. Commands with curated output stay at warn unless asked.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" && verbosity > 0 {
		level = logging.LevelFromVerbosity(verbosity)
	}
	if level == "" && os.Getenv(logging.LogLevelEnvVar) == "" && quietCommand(cmd) {
		level = "warn"
	}
	return logging.InitializeWithOptions(logging.Options{Level: level, File: logFile})
}

func quietCommand(cmd *cobra.Command) bool {
	switch cmd {
	case devicesCmd, discoverCmd, serviceCmd:
		return true
	}
	return false
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fauxmo %s\n", version.Full())
	},
}
