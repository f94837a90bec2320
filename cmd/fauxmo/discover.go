package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neuhausf/fauxmo/internal/discovery"
	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/ssdp"
	"github.com/neuhausf/fauxmo/internal/ui"
)

var (
	discoverWait   time.Duration
	discoverTarget string
	discoverMDNS   bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find WeMo devices on the network",
	Long: `Send an SSDP M-SEARCH the way a voice assistant does and list every
device that answers, with the name from its setup.xml.

Use it to check that fauxmo devices are reachable from this host. With
--mdns the mDNS advertisements of fauxmo instances are listed instead.`,
	Example: `  fauxmo discover
  fauxmo discover --wait 5s --target upnp:rootdevice
  fauxmo discover --mdns`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverWait, "wait", 3*time.Second, "How long to collect answers")
	discoverCmd.Flags().StringVar(&discoverTarget, "target", ssdp.TargetBelkinDevices, "SSDP search target (ST)")
	discoverCmd.Flags().BoolVar(&discoverMDNS, "mdns", false, "Browse mDNS instead of SSDP")
}

// found is one row of discover output.
type found struct {
	name    string
	model   string
	address string
	serial  string
}

func runDiscover(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(cmd.OutOrStdout())
	params := map[string]string{"Wait": discoverWait.String()}
	if discoverMDNS {
		params["Service"] = discovery.DeviceService
	} else {
		params["Target"] = discoverTarget
	}
	printer.PrintHeader("Discovery", "fauxmo discover", params)

	var devices []found
	err := ui.RunWithSpinner(cmd.Context(), printer.Writer(), "Searching...", func(ctx context.Context) error {
		var err error
		if discoverMDNS {
			devices, err = browseMDNS(ctx)
		} else {
			devices, err = searchSSDP(ctx)
		}
		return err
	})
	if err != nil {
		printer.PrintError("Discovery failed", err, []string{
			"Check that this host has a route for multicast (239.255.255.250)",
			"A firewall may block UDP port 1900 or 5353",
		})
		return err
	}

	if len(devices) == 0 {
		printer.PrintWarning("No devices found", map[string]string{
			"Hint": "Try a longer --wait, or run on the same subnet as fauxmo",
		})
		return nil
	}

	table := ui.NewTable("NAME", "MODEL", "ADDRESS", "SERIAL")
	for _, d := range devices {
		table.AddRow(d.name, d.model, d.address, d.serial)
	}
	printer.PrintTable(table)
	printer.Println(fmt.Sprintf("Found %d device(s)", len(devices)))
	return nil
}

// searchSSDP runs one M-SEARCH and fetches each device description.
func searchSSDP(ctx context.Context) ([]found, error) {
	results, err := ssdp.Search(ctx, ssdp.SearchOptions{Target: discoverTarget, Wait: discoverWait})
	if err != nil {
		return nil, err
	}

	devices := make([]found, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, r := range results {
		g.Go(func() error {
			d := found{name: "?", address: r.Location, serial: r.USN}
			if u, err := url.Parse(r.Location); err == nil && u.Host != "" {
				d.address = u.Host
			}
			desc, err := discovery.Describe(gctx, nil, r.Location)
			if err != nil {
				logging.Debug("Describe failed", zap.String("location", r.Location), zap.Error(err))
			} else {
				d.name, d.model, d.serial = desc.FriendlyName, desc.ModelName, desc.SerialNumber
			}
			devices[i] = d
			return nil
		})
	}
	_ = g.Wait()
	return devices, nil
}

func browseMDNS(ctx context.Context) ([]found, error) {
	scanner := discovery.NewScanner(discovery.DeviceService)
	scanner.Timeout = discoverWait

	services, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	var devices []found
	for _, s := range services {
		devices = append(devices, found{
			name:    s.Instance,
			model:   s.GetMetadata("model"),
			address: s.HostPort(),
			serial:  s.GetMetadata("serial"),
		})
	}
	return devices, nil
}
