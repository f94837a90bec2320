// Package commandline switches a device by running shell commands.
//
// A command succeeds when it exits 0. For state_cmd, exit 0 means on and
// any other exit status means off.
package commandline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"go.uber.org/zap"
)

// Name is the key under PLUGINS.
const Name = "CommandLinePlugin"

// DefaultTimeout is how long a command may run, in seconds.
const DefaultTimeout = 10

// Options configures one device.
type Options struct {
	plugin.Options `mapstructure:",squash"`

	OnCmd    string `mapstructure:"on_cmd"`
	OffCmd   string `mapstructure:"off_cmd"`
	StateCmd string `mapstructure:"state_cmd"`

	// Timeout in seconds.
	Timeout float64 `mapstructure:"timeout"`
}

// Plugin is a CommandLinePlugin device.
type Plugin struct {
	*plugin.Base
	opts    Options
	timeout time.Duration
}

// New is the registry factory.
func New(raw map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.Decode(raw, &opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return NewWithOptions(opts)
}

// NewWithOptions validates opts and builds the device.
func NewWithOptions(opts Options) (*Plugin, error) {
	base, err := plugin.NewBase(opts.Options)
	if err != nil {
		return nil, err
	}
	if opts.OnCmd == "" || opts.OffCmd == "" {
		return nil, fmt.Errorf("device %q: on_cmd and off_cmd are required", opts.Name)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Plugin{
		Base:    base,
		opts:    opts,
		timeout: time.Duration(opts.Timeout * float64(time.Second)),
	}, nil
}

func (p *Plugin) On(ctx context.Context) error  { return p.run(ctx, "on", p.opts.OnCmd) }
func (p *Plugin) Off(ctx context.Context) error { return p.run(ctx, "off", p.opts.OffCmd) }

// State runs state_cmd.
func (p *Plugin) State(ctx context.Context) plugin.State {
	if p.UseFakeState() {
		return p.Latest()
	}
	if p.opts.StateCmd == "" {
		return plugin.StateUnknown
	}

	err := p.run(ctx, "state", p.opts.StateCmd)
	switch {
	case err == nil:
		return plugin.StateOn
	case plugin.IsType(err, plugin.ErrTypeCommand):
		return plugin.StateOff
	default:
		logging.Warn("State command failed", zap.String("device", p.Name()), zap.Error(err))
		return plugin.StateUnknown
	}
}

func (p *Plugin) run(ctx context.Context, op, command string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := shellCommand(ctx, command)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	// Children of the shell may hold the output pipe open after a kill.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()

	logging.Debug("Command finished",
		zap.String("device", p.Name()),
		zap.String("op", op),
		zap.String("command", command),
		zap.Duration("duration", time.Since(start)),
		zap.ByteString("output", bytes.TrimSpace(output.Bytes())),
	)

	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return plugin.NewNetworkError(p.Name(), op, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return plugin.NewCommandError(p.Name(), op, exitErr.ExitCode(), err)
	}
	return &plugin.Error{
		Type:    plugin.ErrTypeConfig,
		Device:  p.Name(),
		Op:      op,
		Message: "cannot start command",
		Err:     err,
	}
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "/bin/sh", "-c", command)
}
