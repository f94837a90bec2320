// Package config loads the fauxmo configuration file and persists device
// state between runs.
//
// # Configuration File
//
// The file is JSON or YAML with two top-level sections. FAUXMO holds global
// settings and PLUGINS maps a plugin name to its options and DEVICES:
//
//	{
//	  "FAUXMO": {"ip_address": "auto"},
//	  "PLUGINS": {
//	    "SimpleHTTPPlugin": {
//	      "DEVICES": [{"name": "kitchen light", "port": 12340,
//	                   "on_cmd": "http://localhost/on", "off_cmd": "http://localhost/off"}]
//	    }
//	  }
//	}
//
// Without an explicit path, config.json or config.yaml is searched for in
// the current directory, ~/.fauxmo and /etc/fauxmo.
//
// # State File
//
// The latest successful action of each device is kept in a small YAML file
// keyed by serial, by default:
//   - Linux: $XDG_CONFIG_HOME/fauxmo/state.yaml or $HOME/.config/fauxmo/state.yaml
//   - macOS: $HOME/.config/fauxmo/state.yaml
//   - Windows: %LOCALAPPDATA%\fauxmo\state.yaml
//
// Writes go through a temporary file and a rename.
package config
