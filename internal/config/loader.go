package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/neuhausf/fauxmo/internal/plugin"
	"github.com/spf13/viper"
)

// Config keys as read by viper (lowercased).
const (
	keyIPAddress = "fauxmo.ip_address"
	keyAPIAddr   = "fauxmo.api_addr"
	keyStateFile = "fauxmo.state_file"
	keyMDNS      = "fauxmo.mdns"
	keyPlugins   = "plugins"
	keyDevices   = "devices"
)

// Load reads the config file at path, or searches SearchPaths for
// config.json / config.yaml when path is empty. FAUXMO_IP_ADDRESS,
// FAUXMO_API_ADDR, FAUXMO_STATE_FILE and FAUXMO_MDNS override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault(keyIPAddress, "auto")
	for key, env := range map[string]string{
		keyIPAddress: "FAUXMO_IP_ADDRESS",
		keyAPIAddr:   "FAUXMO_API_ADDR",
		keyStateFile: "FAUXMO_STATE_FILE",
		keyMDNS:      "FAUXMO_MDNS",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("no config file found (searched %s)", strings.Join(SearchPaths(), ", "))
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Path:      v.ConfigFileUsed(),
		IPAddress: v.GetString(keyIPAddress),
		APIAddr:   v.GetString(keyAPIAddr),
		StateFile: v.GetString(keyStateFile),
		MDNS:      v.GetBool(keyMDNS),
	}

	raw := v.GetStringMap(keyPlugins)
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		opts, ok := toStringMap(raw[name])
		if !ok {
			return nil, fmt.Errorf("PLUGINS.%s must be an object", name)
		}

		p := Plugin{Name: name, Options: make(map[string]any, len(opts))}
		for k, val := range opts {
			if strings.EqualFold(k, keyDevices) {
				devices, err := toDeviceList(name, val)
				if err != nil {
					return nil, err
				}
				p.Devices = devices
				continue
			}
			p.Options[k] = val
		}
		cfg.Plugins = append(cfg.Plugins, p)
	}

	return cfg, nil
}

func toDeviceList(pluginName string, val any) ([]map[string]any, error) {
	list, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("PLUGINS.%s.DEVICES must be a list", pluginName)
	}
	devices := make([]map[string]any, 0, len(list))
	for i, item := range list {
		m, ok := toStringMap(item)
		if !ok {
			return nil, fmt.Errorf("PLUGINS.%s.DEVICES[%d] must be an object", pluginName, i)
		}
		devices = append(devices, m)
	}
	return devices, nil
}

func toStringMap(val any) (map[string]any, bool) {
	switch m := val.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// Devices flattens all plugins' devices in config order.
func (c *Config) Devices() []Device {
	var out []Device
	for _, p := range c.Plugins {
		for _, d := range p.Devices {
			var o plugin.Options
			_ = plugin.Decode(plugin.MergeOptions(nil, d), &o)
			out = append(out, Device{
				Plugin:  p.Name,
				Name:    o.Name,
				Port:    o.Port,
				Options: d,
			})
		}
	}
	return out
}

// Validate checks the config for mistakes that would make devices
// unreachable. known reports whether a plugin name is available; nil skips
// that check. All problems are returned together.
func (c *Config) Validate(known func(name string) bool) error {
	var errs []error

	devices := c.Devices()
	if len(devices) == 0 {
		errs = append(errs, errors.New("no devices configured"))
	}

	for _, p := range c.Plugins {
		if known != nil && !known(p.Name) {
			errs = append(errs, fmt.Errorf("unknown plugin %q", p.Name))
		}
	}

	names := make(map[string]bool)
	ports := make(map[int]string)
	for i, d := range devices {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Errorf("%s device %d has no name", d.Plugin, i+1))
			continue
		}
		if names[d.Name] {
			errs = append(errs, fmt.Errorf("device name %q is used more than once", d.Name))
		}
		names[d.Name] = true

		if d.Port < 0 || d.Port > 65535 {
			errs = append(errs, fmt.Errorf("device %q: port %d out of range", d.Name, d.Port))
			continue
		}
		if d.Port == 0 {
			continue
		}
		if other, ok := ports[d.Port]; ok {
			errs = append(errs, fmt.Errorf("devices %q and %q both use port %d", other, d.Name, d.Port))
		}
		ports[d.Port] = d.Name
	}

	return errors.Join(errs...)
}
