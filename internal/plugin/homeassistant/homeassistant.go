// Package homeassistant switches Home Assistant entities through the
// Home Assistant WebSocket API.
//
//	"HomeAssistantPlugin": {
//	  "ha_host": "192.168.1.10",
//	  "ha_token": "<long-lived access token>",
//	  "DEVICES": [
//	    {"name": "garage door", "port": 12360, "entity_id": "cover.garage"},
//	    {"name": "downstairs", "port": 12361, "entity_id": "group.downstairs"}
//	  ]
//	}
//
// Without ha_host, Home Assistant is looked up over mDNS.
package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/neuhausf/fauxmo/internal/discovery"
	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"go.uber.org/zap"
)

// Name is the key under PLUGINS.
const Name = "HomeAssistantPlugin"

const (
	// DefaultPort is Home Assistant's HTTP port
	DefaultPort = 8123

	// DefaultTimeout is the per-command timeout in seconds
	DefaultTimeout = 10
)

// findHomeAssistant is replaced in tests.
var findHomeAssistant = discovery.FindHomeAssistant

// Options configures one device.
type Options struct {
	plugin.Options `mapstructure:",squash"`

	Host     string `mapstructure:"ha_host"`
	Port     int    `mapstructure:"ha_port"`
	Protocol string `mapstructure:"ha_protocol"`
	Token    string `mapstructure:"ha_token"`
	EntityID string `mapstructure:"entity_id"`

	// Timeout in seconds.
	Timeout float64 `mapstructure:"timeout"`
}

// Plugin is a HomeAssistantPlugin device.
type Plugin struct {
	*plugin.Base
	opts   Options
	domain string
	client *client

	mu       sync.Mutex
	resolved string
}

// New is the registry factory.
func New(raw map[string]any) (plugin.Plugin, error) {
	var opts Options
	if err := plugin.Decode(raw, &opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return NewWithOptions(opts)
}

// NewWithOptions validates opts. The connection is opened by the first
// command.
func NewWithOptions(opts Options) (*Plugin, error) {
	base, err := plugin.NewBase(opts.Options)
	if err != nil {
		return nil, err
	}

	domain, _, ok := strings.Cut(opts.EntityID, ".")
	if !ok || domain == "" {
		return nil, fmt.Errorf("device %q: entity_id must look like domain.object_id, got %q", opts.Name, opts.EntityID)
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("device %q: ha_token is required", opts.Name)
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	switch opts.Protocol {
	case "", "http", "ws":
		opts.Protocol = "http"
	case "https", "wss":
		opts.Protocol = "https"
	default:
		return nil, fmt.Errorf("device %q: ha_protocol must be http or https, got %q", opts.Name, opts.Protocol)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	p := &Plugin{Base: base, opts: opts, domain: domain}
	timeout := time.Duration(opts.Timeout * float64(time.Second))
	p.client = newClient(opts.Name, opts.Token, timeout, p.websocketURL)
	return p, nil
}

// websocketURL builds the API URL, looking Home Assistant up over mDNS
// once when no host is configured.
func (p *Plugin) websocketURL(ctx context.Context) (string, error) {
	if p.opts.Host != "" {
		return buildURL(p.opts.Protocol, p.opts.Host, p.opts.Port), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved != "" {
		return p.resolved, nil
	}

	ep, err := findHomeAssistant(ctx)
	if err != nil {
		return "", fmt.Errorf("no ha_host configured and mDNS lookup failed: %w", err)
	}
	p.resolved = buildURL(ep.Protocol, ep.Host, ep.Port)
	logging.Info("Found Home Assistant over mDNS",
		zap.String("device", p.Name()),
		zap.String("url", p.resolved),
	)
	return p.resolved, nil
}

func buildURL(protocol, host string, port int) string {
	scheme := "ws"
	if protocol == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/api/websocket", scheme, net.JoinHostPort(host, strconv.Itoa(port)))
}

// service maps the entity domain to the service that switches it.
func (p *Plugin) service(on bool) (domain, service string) {
	switch p.domain {
	case "cover":
		if on {
			return "cover", "open_cover"
		}
		return "cover", "close_cover"
	case "group":
		domain = "homeassistant"
	default:
		domain = p.domain
	}
	if on {
		return domain, "turn_on"
	}
	return domain, "turn_off"
}

func (p *Plugin) On(ctx context.Context) error  { return p.switchEntity(ctx, "on", true) }
func (p *Plugin) Off(ctx context.Context) error { return p.switchEntity(ctx, "off", false) }

func (p *Plugin) switchEntity(ctx context.Context, op string, on bool) error {
	domain, service := p.service(on)
	_, err := p.client.call(ctx, op, message{
		Type:        "call_service",
		Domain:      domain,
		Service:     service,
		ServiceData: map[string]any{"entity_id": p.opts.EntityID},
	})
	return err
}

// State reads the entity from get_states.
func (p *Plugin) State(ctx context.Context) plugin.State {
	if p.UseFakeState() {
		return p.Latest()
	}

	result, err := p.client.call(ctx, "state", message{Type: "get_states"})
	if err != nil {
		logging.Warn("Home Assistant state request failed", zap.String("device", p.Name()), zap.Error(err))
		return plugin.StateUnknown
	}

	var states []entityState
	if err := json.Unmarshal(result, &states); err != nil {
		logging.Warn("Invalid get_states result", zap.String("device", p.Name()), zap.Error(err))
		return plugin.StateUnknown
	}
	for _, s := range states {
		if s.EntityID == p.opts.EntityID {
			return entityToState(s.State)
		}
	}
	return plugin.StateUnknown
}

func entityToState(s string) plugin.State {
	switch strings.ToLower(s) {
	case "on", "open":
		return plugin.StateOn
	case "off", "closed":
		return plugin.StateOff
	default:
		return plugin.StateUnknown
	}
}

// Close drops the WebSocket connection.
func (p *Plugin) Close() error {
	return p.client.close()
}
