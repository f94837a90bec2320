package plugin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// State is what a device reports to a controller.
type State string

const (
	StateOn      State = "on"
	StateOff     State = "off"
	StateUnknown State = "unknown"
)

// ParseState casefolds s into a State. Anything other than on or off is
// unknown.
func ParseState(s string) State {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return StateOn
	case "off":
		return StateOff
	default:
		return StateUnknown
	}
}

// Plugin is the behavior behind one emulated switch.
type Plugin interface {
	Name() string
	Port() int

	// On and Off perform the action and return nil only when the target
	// confirmed it.
	On(ctx context.Context) error
	Off(ctx context.Context) error

	// State reports the current state. Plugins that cannot query their
	// target return StateUnknown, or their latest action when configured
	// with use_fake_state.
	State(ctx context.Context) State

	// Latest is the last action that succeeded.
	Latest() State
	Record(s State)

	Close() error
}

// Options are the keys every plugin understands.
type Options struct {
	Name         string `mapstructure:"name"`
	Port         int    `mapstructure:"port"`
	InitialState string `mapstructure:"initial_state"`
	UseFakeState bool   `mapstructure:"use_fake_state"`
}

// Base carries the fields shared by all plugins. Plugins embed *Base.
type Base struct {
	name         string
	useFakeState bool

	mu     sync.RWMutex
	port   int
	latest State
}

// NewBase validates opts and returns the shared plugin state.
func NewBase(opts Options) (*Base, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, fmt.Errorf("device name is required")
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, fmt.Errorf("device %q: port %d out of range", opts.Name, opts.Port)
	}

	initial := StateOff
	if opts.InitialState != "" {
		initial = ParseState(opts.InitialState)
		if initial == StateUnknown {
			return nil, fmt.Errorf("device %q: initial_state must be on or off, got %q", opts.Name, opts.InitialState)
		}
	}

	return &Base{
		name:         opts.Name,
		port:         opts.Port,
		useFakeState: opts.UseFakeState,
		latest:       initial,
	}, nil
}

func (b *Base) Name() string { return b.name }

func (b *Base) Port() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.port
}

// SetPort stores the port actually bound when the configured port was 0.
func (b *Base) SetPort(port int) {
	b.mu.Lock()
	b.port = port
	b.mu.Unlock()
}

func (b *Base) Latest() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

func (b *Base) Record(s State) {
	b.mu.Lock()
	b.latest = s
	b.mu.Unlock()
}

// UseFakeState reports whether State should answer from the latest action.
func (b *Base) UseFakeState() bool { return b.useFakeState }

// Close is a no-op for plugins without connections.
func (b *Base) Close() error { return nil }

// PortSetter is implemented by plugins embedding *Base.
type PortSetter interface {
	SetPort(port int)
}

// TurnOn switches p on and records the action if it succeeded.
func TurnOn(ctx context.Context, p Plugin) error {
	if err := p.On(ctx); err != nil {
		return err
	}
	p.Record(StateOn)
	return nil
}

// TurnOff switches p off and records the action if it succeeded.
func TurnOff(ctx context.Context, p Plugin) error {
	if err := p.Off(ctx); err != nil {
		return err
	}
	p.Record(StateOff)
	return nil
}

// Decode fills out from a device option map. Unknown keys are ignored and
// strings are converted to numbers, bools and durations where needed.
func Decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
