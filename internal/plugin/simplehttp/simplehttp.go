// Package simplehttp switches a device by sending HTTP requests, for
// targets that expose plain on and off URLs.
//
//	"SimpleHTTPPlugin": {
//	  "DEVICES": [{
//	    "name": "office lamp", "port": 12345,
//	    "on_cmd": "http://192.168.1.50/relay?turn=on",
//	    "off_cmd": "http://192.168.1.50/relay?turn=off",
//	    "state_cmd": "http://192.168.1.50/relay",
//	    "state_response_on": "\"ison\":true",
//	    "state_response_off": "\"ison\":false"
//	  }]
//	}
package simplehttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"github.com/neuhausf/fauxmo/internal/version"
	"go.uber.org/zap"
)

// Name is the key under PLUGINS.
const Name = "SimpleHTTPPlugin"

const (
	// DefaultTimeout is the per-request timeout in seconds
	DefaultTimeout = 5

	// DefaultRetryDelay is the delay before the first retry
	DefaultRetryDelay = 250 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff between retries
	DefaultMaxRetryDelay = 2 * time.Second

	maxResponseBytes = 1 << 20
)

// Options configures one device.
type Options struct {
	plugin.Options `mapstructure:",squash"`

	OnCmd    string `mapstructure:"on_cmd"`
	OffCmd   string `mapstructure:"off_cmd"`
	StateCmd string `mapstructure:"state_cmd"`

	Method      string `mapstructure:"method"`
	StateMethod string `mapstructure:"state_method"`

	// Request bodies: a string is sent as-is, an object is form-encoded.
	OnData    any `mapstructure:"on_data"`
	OffData   any `mapstructure:"off_data"`
	StateData any `mapstructure:"state_data"`

	Headers  map[string]string `mapstructure:"headers"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`

	StateResponseOn  string `mapstructure:"state_response_on"`
	StateResponseOff string `mapstructure:"state_response_off"`

	// Timeout in seconds.
	Timeout float64 `mapstructure:"timeout"`
	// Retries of requests that failed at the network level.
	Retries int `mapstructure:"retries"`
}

type request struct {
	method      string
	url         string
	body        []byte
	contentType string
}

// Plugin is a SimpleHTTPPlugin device.
type Plugin struct {
	*plugin.Base
	opts Options

	on, off, state *request

	// HTTPClient is replaceable in tests.
	HTTPClient *http.Client

	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
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
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}
	if opts.StateMethod == "" {
		opts.StateMethod = http.MethodGet
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	p := &Plugin{
		Base:          base,
		opts:          opts,
		HTTPClient:    &http.Client{Timeout: time.Duration(opts.Timeout * float64(time.Second))},
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}

	if p.on, err = newRequest(opts.Method, opts.OnCmd, opts.OnData); err != nil {
		return nil, fmt.Errorf("device %q: on_cmd: %w", opts.Name, err)
	}
	if p.off, err = newRequest(opts.Method, opts.OffCmd, opts.OffData); err != nil {
		return nil, fmt.Errorf("device %q: off_cmd: %w", opts.Name, err)
	}
	if opts.StateCmd != "" {
		if p.state, err = newRequest(opts.StateMethod, opts.StateCmd, opts.StateData); err != nil {
			return nil, fmt.Errorf("device %q: state_cmd: %w", opts.Name, err)
		}
	}
	return p, nil
}

func newRequest(method, rawURL string, data any) (*request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	r := &request{method: strings.ToUpper(method), url: rawURL}
	r.body, r.contentType, err = encodeData(data)
	return r, err
}

// encodeData turns on_data/off_data/state_data into a request body.
func encodeData(data any) ([]byte, string, error) {
	switch d := data.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(d), "", nil
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		form := url.Values{}
		for _, k := range keys {
			form.Set(k, fmt.Sprint(d[k]))
		}
		return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", fmt.Errorf("data must be a string or an object, got %T", data)
	}
}

// On requests on_cmd.
func (p *Plugin) On(ctx context.Context) error {
	_, err := p.do(ctx, "on", p.on)
	return err
}

// Off requests off_cmd.
func (p *Plugin) Off(ctx context.Context) error {
	_, err := p.do(ctx, "off", p.off)
	return err
}

// State requests state_cmd and looks for state_response_off, then
// state_response_on, in the response body.
func (p *Plugin) State(ctx context.Context) plugin.State {
	if p.UseFakeState() {
		return p.Latest()
	}
	if p.state == nil {
		return plugin.StateUnknown
	}

	body, err := p.do(ctx, "state", p.state)
	if err != nil {
		logging.Warn("State request failed", zap.String("device", p.Name()), zap.Error(err))
		return plugin.StateUnknown
	}

	switch {
	case p.opts.StateResponseOff != "" && strings.Contains(body, p.opts.StateResponseOff):
		return plugin.StateOff
	case p.opts.StateResponseOn != "" && strings.Contains(body, p.opts.StateResponseOn):
		return plugin.StateOn
	default:
		return plugin.StateUnknown
	}
}

// do sends r, retrying network failures with exponential backoff.
func (p *Plugin) do(ctx context.Context, op string, r *request) (string, error) {
	var lastErr error
	delay := p.RetryDelay

	for attempt := 0; attempt <= p.opts.Retries; attempt++ {
		if attempt > 0 {
			logging.Debug("Retrying request",
				zap.String("device", p.Name()),
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return "", plugin.NewNetworkError(p.Name(), op, ctx.Err())
			case <-time.After(delay):
			}
			delay = min(delay*2, p.MaxRetryDelay)
		}

		body, err := p.attempt(ctx, op, r)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

// retryable reports whether err happened before any response arrived.
func retryable(err error) bool {
	return plugin.IsRetryable(err) &&
		(plugin.IsType(err, plugin.ErrTypeNetwork) || plugin.IsType(err, plugin.ErrTypeTimeout))
}

func (p *Plugin) attempt(ctx context.Context, op string, r *request) (string, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return "", plugin.NewConfigError(p.Name(), op, err.Error())
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, v := range p.opts.Headers {
		req.Header.Set(k, v)
	}
	if p.opts.User != "" || p.opts.Password != "" {
		req.SetBasicAuth(p.opts.User, p.opts.Password)
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", plugin.NewNetworkError(p.Name(), op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", plugin.NewNetworkError(p.Name(), op, err)
	}

	logging.Debug("HTTP request",
		zap.String("device", p.Name()),
		zap.String("method", r.method),
		zap.String("url", r.url),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", plugin.NewHTTPError(p.Name(), op, resp.StatusCode)
	}
	return string(data), nil
}
