package config

import "time"

// Config is a parsed fauxmo configuration file.
//
//	{
//	  "FAUXMO": {"ip_address": "auto"},
//	  "PLUGINS": {
//	    "SimpleHTTPPlugin": {
//	      "DEVICES": [
//	        {"name": "kitchen light", "port": 12340,
//	         "on_cmd": "http://localhost:8765/on", "off_cmd": "http://localhost:8765/off"}
//	      ]
//	    }
//	  }
//	}
type Config struct {
	// Path of the file the config was read from.
	Path string

	// IPAddress is advertised to controllers. "auto" picks the address of
	// the default-route interface.
	IPAddress string
	// APIAddr enables the local control API and metrics, e.g. "127.0.0.1:8080".
	APIAddr string
	// StateFile overrides where the latest action per device is persisted.
	// "none" disables persistence.
	StateFile string
	// MDNS advertises every device over mDNS in addition to SSDP.
	MDNS bool

	Plugins []Plugin
}

// Plugin is one entry under PLUGINS.
type Plugin struct {
	// Name as written in the file; matched against the plugin registry
	// without regard to case.
	Name string
	// Options are the plugin-level keys shared by all of its devices.
	Options map[string]any
	Devices []map[string]any
}

// Device is a flattened view of one configured device.
type Device struct {
	Plugin  string
	Name    string
	Port    int
	Options map[string]any // device keys only
}

// StateDisabled as state_file turns persistence off.
const StateDisabled = "none"

// DeviceState is the persisted latest action of one device.
type DeviceState struct {
	Name    string    `yaml:"name"`
	State   string    `yaml:"state"`
	Changed time.Time `yaml:"changed"`
}

type stateDocument struct {
	Version int                    `yaml:"version"`
	Devices map[string]DeviceState `yaml:"devices"` // keyed by serial
}
