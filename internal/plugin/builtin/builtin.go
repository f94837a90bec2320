// Package builtin registers the plugins compiled into fauxmo.
package builtin

import (
	"github.com/neuhausf/fauxmo/internal/plugin"
	"github.com/neuhausf/fauxmo/internal/plugin/commandline"
	"github.com/neuhausf/fauxmo/internal/plugin/homeassistant"
	"github.com/neuhausf/fauxmo/internal/plugin/mqttplugin"
	"github.com/neuhausf/fauxmo/internal/plugin/simplehttp"
)

// Registry returns a registry holding every built-in plugin.
func Registry() *plugin.Registry {
	r := plugin.NewRegistry()
	r.Register(simplehttp.Name, simplehttp.New)
	r.Register(commandline.Name, commandline.New)
	r.Register(mqttplugin.Name, mqttplugin.New)
	r.Register(homeassistant.Name, homeassistant.New)
	return r
}
