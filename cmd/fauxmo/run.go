package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/neuhausf/fauxmo/internal/app"
	"github.com/neuhausf/fauxmo/internal/config"
	"github.com/neuhausf/fauxmo/internal/daemon"
	"github.com/neuhausf/fauxmo/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the emulated devices",
	Long: `Start one WeMo responder per configured device and the SSDP responder
that makes them discoverable. Runs until interrupted.

When started by the service manager (see "fauxmo service install") the
same command runs as a system service.`,
	Example: `  # Run with the config found in the default locations
  fauxmo run

  # Explicit config and debug logging
  fauxmo run -c ~/.fauxmo/config.json -vv`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	run := func(ctx context.Context) error {
		return app.Run(ctx, configPath)
	}

	if !daemon.Interactive() {
		cfg, err := daemon.Config(configPath)
		if err != nil {
			return err
		}
		s, err := daemon.New(run, cfg)
		if err != nil {
			return err
		}
		return s.Run()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx)
}

var serviceCmd = &cobra.Command{
	Use:   "service <action>",
	Short: "Manage fauxmo as a system service",
	Long: `Install, uninstall, start, stop or restart fauxmo as a service of the
platform service manager (systemd, launchd or Windows services).

The installed service runs "fauxmo run" with the absolute path of the
config file in use when it was installed.`,
	Example: `  sudo fauxmo service install -c /etc/fauxmo/config.json
  sudo fauxmo service start
  sudo fauxmo service uninstall --yes`,
	ValidArgs: daemon.Actions(),
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      runService,
}

var assumeYes bool

func init() {
	serviceCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before uninstalling")
}

func runService(cmd *cobra.Command, args []string) error {
	action := args[0]
	printer := ui.NewPrinter(cmd.OutOrStdout())

	path := configPath
	if action == "install" {
		// Resolve the searched-for file now; the service manager's working
		// directory and home are not ours.
		cfg, err := config.Load(configPath)
		if err != nil {
			printer.PrintError("Cannot install service", err, []string{
				"Pass the config file with --config",
				"Check the file with 'fauxmo devices'",
			})
			return err
		}
		path = cfg.Path
	}

	if action == "uninstall" && !assumeYes {
		ok := ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Uninstall service", []string{
			"The fauxmo service will be stopped and removed",
			"Voice assistants will lose the emulated devices",
		})
		if !ok {
			return nil
		}
	}

	cfg, err := daemon.Config(path)
	if err != nil {
		return err
	}
	s, err := daemon.New(func(ctx context.Context) error { return app.Run(ctx, path) }, cfg)
	if err != nil {
		return err
	}

	if err := daemon.Control(s, action); err != nil {
		printer.PrintError(fmt.Sprintf("Service %s failed", action), err, []string{
			"Service management usually needs root or Administrator rights",
			"Run 'fauxmo service install' before start or stop",
		})
		return err
	}

	details := map[string]string{"Platform": service.Platform()}
	if len(cfg.Arguments) > 0 {
		details["Command"] = "fauxmo " + strings.Join(cfg.Arguments, " ")
	}
	if st, err := s.Status(); err == nil {
		details["Status"] = statusString(st)
	}
	printer.PrintSuccess(fmt.Sprintf("Service %s complete", action), details)
	return nil
}

func statusString(s service.Status) string {
	switch s {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
