package main

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/neuhausf/fauxmo/internal/app"
	"github.com/neuhausf/fauxmo/internal/config"
	"github.com/neuhausf/fauxmo/internal/ui"
)

var (
	queryState   bool
	stateTimeout time.Duration
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List configured devices",
	Long: `Load and validate the config file and list every device with its
plugin, port, serial and the last action fauxmo recorded for it.

With --state each plugin is asked for the current state of its target.`,
	Example: `  fauxmo devices
  fauxmo devices --state -c ~/.fauxmo/config.json`,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().BoolVar(&queryState, "state", false, "Query each device's current state")
	devicesCmd.Flags().DurationVar(&stateTimeout, "state-timeout", 5*time.Second, "Timeout for each state query")
}

func runDevices(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(cmd.OutOrStdout())

	cfg, err := config.Load(configPath)
	if err != nil {
		printer.PrintError("Cannot load configuration", err, []string{
			"Pass the config file with --config",
			"Default locations: ./config.json, ~/.fauxmo/, /etc/fauxmo/",
		})
		return err
	}

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		printer.PrintError("Invalid configuration", err, nil)
		return err
	}
	defer a.Close()

	printer.PrintHeader("Configured devices", "fauxmo devices", map[string]string{
		"Config": cfg.Path,
		"IP":     a.IP().String(),
	})

	headers := []string{"NAME", "PLUGIN", "PORT", "SERIAL", "LATEST"}
	if queryState {
		headers = append(headers, "STATE")
	}
	table := ui.NewTable(headers...)
	table.StateColumn = len(headers) - 1

	for _, d := range a.Devices() {
		p := d.Handler.Plugin()
		port := "auto"
		if p.Port() != 0 {
			port = strconv.Itoa(p.Port())
		}
		row := []string{d.Handler.Name(), d.Plugin, port, d.Handler.Serial(), string(p.Latest())}
		if queryState {
			ctx, cancel := context.WithTimeout(cmd.Context(), stateTimeout)
			row = append(row, string(p.State(ctx)))
			cancel()
		}
		table.AddRow(row...)
	}
	printer.PrintTable(table)
	return nil
}
