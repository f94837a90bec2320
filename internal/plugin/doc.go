// Package plugin defines the behavior behind each emulated WeMo switch.
//
// A Plugin turns its device on or off and reports its state. Every plugin
// embeds *Base, which carries the device name, the TCP port the device is
// served on and the latest action that succeeded.
//
// # Actions
//
// Callers go through TurnOn and TurnOff rather than calling On and Off
// directly so that only confirmed actions are recorded:
//
//	if err := plugin.TurnOn(ctx, p); err != nil {
//	    return err
//	}
//	p.Latest() // StateOn
//
// # Registry
//
// Plugins are built by name from config. Plugin-level keys are shared by
// every device of that plugin, and device keys win:
//
//	reg := plugin.NewRegistry()
//	reg.Register("SimpleHTTPPlugin", simplehttp.New)
//	p, err := reg.Build("simplehttpplugin", pluginOpts, deviceOpts)
//
// # Errors
//
// Failed actions return *Error values classified by ErrorType. IsRetryable
// reports whether a transient failure is worth another attempt.
package plugin
