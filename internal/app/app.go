// Package app wires configuration, plugins, device servers, SSDP, and the
// optional API, metrics and mDNS advertisement into one running fauxmo.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neuhausf/fauxmo/internal/api"
	"github.com/neuhausf/fauxmo/internal/config"
	"github.com/neuhausf/fauxmo/internal/discovery"
	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/metrics"
	"github.com/neuhausf/fauxmo/internal/netutil"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"github.com/neuhausf/fauxmo/internal/plugin/builtin"
	"github.com/neuhausf/fauxmo/internal/protocol"
	"github.com/neuhausf/fauxmo/internal/server"
	"github.com/neuhausf/fauxmo/internal/ssdp"
	"github.com/neuhausf/fauxmo/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Options tune how an App binds. The zero value is what "fauxmo run" uses.
type Options struct {
	// Registry defaults to the built-in plugins.
	Registry *plugin.Registry
	// SSDPAddr overrides 0.0.0.0:1900.
	SSDPAddr string
	// DisableMulticast skips joining the SSDP group.
	DisableMulticast bool
}

// Device is one configured device and the handler serving it.
type Device struct {
	Plugin  string // canonical plugin name
	Handler *protocol.Handler
}

// App is a configured fauxmo instance.
type App struct {
	cfg     *config.Config
	opts    Options
	ip      net.IP
	devices []Device

	store    *config.StateStore
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// New validates cfg, builds every plugin and restores persisted states.
// Plugins are closed again when New fails.
func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.Registry == nil {
		opts.Registry = builtin.Registry()
	}
	if err := cfg.Validate(opts.Registry.Has); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ip, err := netutil.LocalIP(cfg.IPAddress)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, opts: opts, ip: ip}

	if err := a.openStateStore(); err != nil {
		return nil, err
	}
	if cfg.APIAddr != "" {
		a.registry, a.metrics = metrics.NewRegistry()
	}

	for _, p := range cfg.Plugins {
		for k := range p.Options {
			if strings.EqualFold(k, "path") {
				logging.Warn("Ignoring plugin path, plugins are compiled in", zap.String("plugin", p.Name))
			}
		}
		_, canonical, _ := opts.Registry.Lookup(p.Name)

		for _, d := range p.Devices {
			dev, err := opts.Registry.Build(p.Name, p.Options, d)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.devices = append(a.devices, Device{Plugin: canonical, Handler: a.newHandler(dev)})
		}
	}

	a.metrics.SetDevices(len(a.devices))
	return a, nil
}

func (a *App) openStateStore() error {
	path := a.cfg.StateFile
	if strings.EqualFold(path, config.StateDisabled) {
		return nil
	}
	if path == "" {
		var err error
		if path, err = config.DefaultStatePath(); err != nil {
			logging.Warn("State persistence disabled", zap.Error(err))
			return nil
		}
	}
	store, err := config.OpenStateStore(path)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *App) newHandler(p plugin.Plugin) *protocol.Handler {
	h := protocol.NewHandler(p)
	if a.store != nil {
		if state, ok := a.store.Get(h.Serial()); ok {
			p.Record(state)
			logging.Debug("Restored device state",
				zap.String("device", p.Name()),
				zap.String("state", string(state)),
			)
		}
		h.AddObserver(a.store)
	}
	if a.metrics != nil {
		h.AddObserver(a.metrics)
		a.metrics.StateChanged(p.Name(), h.Serial(), p.Latest())
	}
	return h
}

// IP is the address advertised to controllers.
func (a *App) IP() net.IP { return a.ip }

// Devices returns the configured devices in config order.
func (a *App) Devices() []Device { return a.devices }

// Handlers returns the device handlers in config order.
func (a *App) Handlers() []*protocol.Handler {
	out := make([]*protocol.Handler, len(a.devices))
	for i, d := range a.devices {
		out[i] = d.Handler
	}
	return out
}

// Run binds every listener, serves until ctx is canceled or one of them
// fails, then shuts everything down. Plugins stay open; call Close.
func (a *App) Run(ctx context.Context) error {
	host := a.ip.String()

	servers := make([]*server.Server, 0, len(a.devices))
	for _, d := range a.devices {
		s := server.New(server.Config{Host: host, Port: d.Handler.Plugin().Port()}, d.Handler)
		if err := s.Listen(); err != nil {
			shutdownAll(servers)
			return err
		}
		servers = append(servers, s)
	}

	iface, err := netutil.InterfaceForIP(a.ip)
	if err != nil {
		logging.Debug("No interface for advertised IP, using default", zap.Error(err))
	}

	responder := ssdp.NewResponder(ssdp.Config{
		Addr:             a.opts.SSDPAddr,
		Interface:        iface,
		DisableMulticast: a.opts.DisableMulticast,
		OnSearch:         a.metrics.Search,
	})
	for i, s := range servers {
		responder.AddDevice(a.devices[i].Handler.Name(), host, s.Port())
	}
	if err := responder.Listen(ctx); err != nil {
		shutdownAll(servers)
		return err
	}
	defer responder.Close()

	var apiServer *api.Server
	if a.cfg.APIAddr != "" {
		apiServer = api.New(a.Handlers(), metrics.Handler(a.registry), version.Version)
		if err := apiServer.Listen(a.cfg.APIAddr); err != nil {
			shutdownAll(servers)
			return err
		}
	}

	var advertiser *discovery.Advertiser
	if a.cfg.MDNS {
		advertiser = &discovery.Advertiser{}
		if iface != nil {
			advertiser.Interfaces = []net.Interface{*iface}
		}
		for i, s := range servers {
			h := a.devices[i].Handler
			if err := advertiser.Advertise(h.Name(), h.Serial(), s.Port()); err != nil {
				logging.Warn("mDNS advertisement failed", zap.Error(err))
			}
		}
		defer advertiser.Shutdown()
	}

	logging.Info("Fauxmo ready",
		zap.String("version", version.Version),
		zap.String("ip", host),
		zap.Int("devices", len(servers)),
		zap.Bool("api", apiServer != nil),
		zap.Bool("mdns", advertiser != nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(func() error { return s.Serve(gctx) })
	}
	g.Go(func() error { return responder.Serve(gctx) })
	if apiServer != nil {
		g.Go(func() error { return apiServer.Serve(gctx) })
	}

	err = g.Wait()
	shutdownAll(servers)
	logging.Info("Fauxmo stopped")
	return err
}

func shutdownAll(servers []*server.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, s := range servers {
		_ = s.Shutdown(ctx)
	}
}

// Close closes every plugin and flushes logs.
func (a *App) Close() error {
	var errs []error
	for _, d := range a.devices {
		if err := d.Handler.Plugin().Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", d.Handler.Name(), err))
		}
	}
	logging.Sync()
	return errors.Join(errs...)
}

// Run loads the config at path and serves it until ctx is canceled.
func Run(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logging.Info("Loaded configuration", zap.String("path", cfg.Path))

	a, err := New(cfg, Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}
