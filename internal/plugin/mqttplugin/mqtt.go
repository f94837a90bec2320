// Package mqttplugin switches a device by publishing to an MQTT broker.
//
//	"MQTTPlugin": {
//	  "mqtt_server": "broker.lan",
//	  "DEVICES": [{
//	    "name": "porch", "port": 12350,
//	    "on_cmd": ["home/porch/set", "ON"],
//	    "off_cmd": ["home/porch/set", "OFF"],
//	    "state_cmd": "home/porch/state"
//	  }]
//	}
//
// With state_cmd set, the device subscribes to that topic and reports the
// last payload matching state_response_on or state_response_off, which
// default to the on and off payloads.
package mqttplugin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"go.uber.org/zap"
)

// Name is the key under PLUGINS.
const Name = "MQTTPlugin"

const (
	// DefaultPort is the plain MQTT port
	DefaultPort = 1883

	// defaultConnectTimeout bounds the initial connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout bounds a publish when the caller has no deadline.
	defaultPublishTimeout = 5 * time.Second

	defaultKeepAlive         = 60 * time.Second
	defaultMaxReconnect      = 30 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
)

// Options configures one device.
type Options struct {
	plugin.Options `mapstructure:",squash"`

	Server   string `mapstructure:"mqtt_server"`
	Port     int    `mapstructure:"mqtt_port"`
	User     string `mapstructure:"mqtt_user"`
	Password string `mapstructure:"mqtt_pw"`
	ClientID string `mapstructure:"mqtt_client_id"`

	// OnCmd and OffCmd are [topic, payload].
	OnCmd    []string `mapstructure:"on_cmd"`
	OffCmd   []string `mapstructure:"off_cmd"`
	StateCmd string   `mapstructure:"state_cmd"`

	StateResponseOn  string `mapstructure:"state_response_on"`
	StateResponseOff string `mapstructure:"state_response_off"`

	QoS    int  `mapstructure:"qos"`
	Retain bool `mapstructure:"retain"`
}

// Plugin is an MQTTPlugin device. Every device holds its own connection.
type Plugin struct {
	*plugin.Base
	opts   Options
	client pahomqtt.Client

	mu       sync.RWMutex
	reported plugin.State
}

// New is the registry factory.
func New(raw map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.Decode(raw, &opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return Connect(opts)
}

// Connect validates opts, connects to the broker and subscribes to
// state_cmd. A broker that is down at startup is retried in the
// background.
func Connect(opts Options) (*Plugin, error) {
	base, err := plugin.NewBase(opts.Options)
	if err != nil {
		return nil, err
	}
	if err := validate(&opts); err != nil {
		return nil, fmt.Errorf("device %q: %w", opts.Name, err)
	}

	p := &Plugin{
		Base:     base,
		opts:     opts,
		reported: plugin.StateUnknown,
	}

	p.client = pahomqtt.NewClient(p.clientOptions())
	token := p.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		logging.Warn("MQTT broker not reachable yet, retrying in background",
			zap.String("device", p.Name()),
			zap.String("broker", p.brokerURL()),
		)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, plugin.NewNetworkError(p.Name(), "connect", err)
	}
	return p, nil
}

func validate(opts *Options) error {
	if opts.Server == "" {
		return fmt.Errorf("mqtt_server is required")
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if len(opts.OnCmd) != 2 || len(opts.OffCmd) != 2 {
		return fmt.Errorf("on_cmd and off_cmd must be [topic, payload]")
	}
	if opts.QoS < 0 || opts.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", opts.QoS)
	}
	if opts.StateResponseOn == "" {
		opts.StateResponseOn = opts.OnCmd[1]
	}
	if opts.StateResponseOff == "" {
		opts.StateResponseOff = opts.OffCmd[1]
	}
	if opts.ClientID == "" {
		opts.ClientID = "fauxmo-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	return nil
}

func (p *Plugin) brokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", p.opts.Server, p.opts.Port)
}

func (p *Plugin) clientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(p.brokerURL())
	opts.SetClientID(p.opts.ClientID)
	if p.opts.User != "" {
		opts.SetUsername(p.opts.User)
		opts.SetPassword(p.opts.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Second)
	opts.SetMaxReconnectInterval(defaultMaxReconnect)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	// Subscriptions are restored here after every reconnect.
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		logging.Debug("MQTT connected", zap.String("device", p.Name()), zap.String("broker", p.brokerURL()))
		if p.opts.StateCmd != "" {
			token := c.Subscribe(p.opts.StateCmd, byte(p.opts.QoS), p.onState)
			go checkSubscribe(p.Name(), p.opts.StateCmd, token)
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logging.Warn("MQTT connection lost", zap.String("device", p.Name()), zap.Error(err))
	})
	return opts
}

// checkSubscribe logs a refused or unanswered state subscription; the
// device then reports unknown until the next reconnect.
func checkSubscribe(device, topic string, token pahomqtt.Token) {
	if !token.WaitTimeout(defaultPublishTimeout) {
		logging.Warn("MQTT subscribe timed out", zap.String("device", device), zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		logging.Warn("MQTT subscribe failed",
			zap.String("device", device),
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

func (p *Plugin) onState(_ pahomqtt.Client, msg pahomqtt.Message) {
	payload := strings.TrimSpace(string(msg.Payload()))

	var state plugin.State
	switch payload {
	case p.opts.StateResponseOn:
		state = plugin.StateOn
	case p.opts.StateResponseOff:
		state = plugin.StateOff
	default:
		logging.Debug("Ignoring MQTT state payload",
			zap.String("device", p.Name()),
			zap.String("topic", msg.Topic()),
			zap.String("payload", payload),
		)
		return
	}

	p.mu.Lock()
	p.reported = state
	p.mu.Unlock()
}

func (p *Plugin) On(ctx context.Context) error  { return p.publish(ctx, "on", p.opts.OnCmd) }
func (p *Plugin) Off(ctx context.Context) error { return p.publish(ctx, "off", p.opts.OffCmd) }

// State is the last state seen on state_cmd.
func (p *Plugin) State(ctx context.Context) plugin.State {
	if p.UseFakeState() {
		return p.Latest()
	}
	if p.opts.StateCmd == "" {
		return plugin.StateUnknown
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reported
}

func (p *Plugin) publish(ctx context.Context, op string, cmd []string) error {
	if !p.client.IsConnectionOpen() {
		return plugin.NewRemoteError(p.Name(), op, "not connected to "+p.brokerURL())
	}

	token := p.client.Publish(cmd[0], byte(p.opts.QoS), p.opts.Retain, cmd[1])

	timeout := defaultPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	select {
	case <-token.Done():
	case <-ctx.Done():
		return plugin.NewNetworkError(p.Name(), op, ctx.Err())
	case <-time.After(timeout):
		return plugin.NewNetworkError(p.Name(), op, context.DeadlineExceeded)
	}
	if err := token.Error(); err != nil {
		return plugin.NewNetworkError(p.Name(), op, err)
	}

	logging.Debug("MQTT published",
		zap.String("device", p.Name()),
		zap.String("topic", cmd[0]),
		zap.String("payload", cmd[1]),
	)
	return nil
}

// Close disconnects from the broker.
func (p *Plugin) Close() error {
	if p.client != nil {
		p.client.Disconnect(defaultDisconnectQuiesce)
	}
	return nil
}
