package mqttplugin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startBroker runs an in-process broker on a loopback port.
func startBroker(t *testing.T) (*mochi.Server, int) {
	t.Helper()
	port := freePort(t)

	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		t.Fatal(err)
	}
	tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: fmt.Sprintf("127.0.0.1:%d", port)})
	if err := server.AddListener(tcp); err != nil {
		t.Fatal(err)
	}
	if err := server.Serve(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = server.Close() })
	return server, port
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPublishOnOff(t *testing.T) {
	server, port := startBroker(t)

	var mu sync.Mutex
	var got []string
	err := server.Subscribe("home/porch/set", 1, func(_ *mochi.Client, _ packets.Subscription, pk packets.Packet) {
		mu.Lock()
		got = append(got, string(pk.Payload))
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}

	p, err := New(map[string]any{
		"name":        "porch",
		"mqtt_server": "127.0.0.1",
		"mqtt_port":   port,
		"on_cmd":      []any{"home/porch/set", "ON"},
		"off_cmd":     []any{"home/porch/set", "OFF"},
		"qos":         1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := plugin.TurnOn(ctx, p); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	if err := plugin.TurnOff(ctx, p); err != nil {
		t.Fatalf("Off() error = %v", err)
	}

	waitFor(t, "published payloads", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})
	mu.Lock()
	defer mu.Unlock()
	if got[0] != "ON" || got[1] != "OFF" {
		t.Errorf("payloads = %v, want [ON OFF]", got)
	}
	if p.Latest() != plugin.StateOff {
		t.Errorf("Latest() = %v, want off", p.Latest())
	}
}

func TestStateFromSubscription(t *testing.T) {
	server, port := startBroker(t)

	p, err := Connect(Options{
		Options:  plugin.Options{Name: "porch"},
		Server:   "127.0.0.1",
		Port:     port,
		OnCmd:    []string{"home/porch/set", "ON"},
		OffCmd:   []string{"home/porch/set", "OFF"},
		StateCmd: "home/porch/state",
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	if got := p.State(ctx); got != plugin.StateUnknown {
		t.Errorf("State() before any message = %v, want unknown", got)
	}

	// Retained so the message is delivered whenever the subscription lands.
	if err := server.Publish("home/porch/state", []byte("ON"), true, 0); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "state on", func() bool { return p.State(ctx) == plugin.StateOn })

	if err := server.Publish("home/porch/state", []byte("garbage"), true, 0); err != nil {
		t.Fatal(err)
	}
	if err := server.Publish("home/porch/state", []byte(" OFF\n"), true, 0); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "state off", func() bool { return p.State(ctx) == plugin.StateOff })
}

func TestPublishNotConnected(t *testing.T) {
	opts := Options{
		Options: plugin.Options{Name: "porch"},
		Server:  "127.0.0.1",
		OnCmd:   []string{"a", "1"},
		OffCmd:  []string{"a", "0"},
	}
	if err := validate(&opts); err != nil {
		t.Fatal(err)
	}
	base, err := plugin.NewBase(opts.Options)
	if err != nil {
		t.Fatal(err)
	}
	p := &Plugin{Base: base, opts: opts, reported: plugin.StateUnknown}
	p.client = pahomqtt.NewClient(p.clientOptions())

	err = plugin.TurnOn(context.Background(), p)
	if !plugin.IsType(err, plugin.ErrTypeRemote) {
		t.Errorf("On() error = %v, want remote error", err)
	}
	if p.Latest() != plugin.StateOff {
		t.Errorf("Latest() = %v, failed publish must not be recorded", p.Latest())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"no server", Options{OnCmd: []string{"a", "1"}, OffCmd: []string{"a", "0"}}, "mqtt_server is required"},
		{"bad on_cmd", Options{Server: "b", OnCmd: []string{"a"}, OffCmd: []string{"a", "0"}}, "[topic, payload]"},
		{"bad qos", Options{Server: "b", OnCmd: []string{"a", "1"}, OffCmd: []string{"a", "0"}, QoS: 3}, "qos must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(&tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validate() error = %v, want containing %q", err, tt.want)
			}
		})
	}

	opts := Options{Server: "b", OnCmd: []string{"a", "1"}, OffCmd: []string{"a", "0"}}
	if err := validate(&opts); err != nil {
		t.Fatal(err)
	}
	if opts.Port != DefaultPort || opts.StateResponseOn != "1" || opts.StateResponseOff != "0" {
		t.Errorf("defaults = %+v", opts)
	}
	if !strings.HasPrefix(opts.ClientID, "fauxmo-") {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
}

type fakeToken struct {
	complete bool
	err      error
}

func (t fakeToken) Wait() bool                     { return t.complete }
func (t fakeToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.complete {
		close(ch)
	}
	return ch
}

func TestCheckSubscribeLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })

	tests := []struct {
		name  string
		token fakeToken
		want  string
	}{
		{"accepted", fakeToken{complete: true}, ""},
		{"refused", fakeToken{complete: true, err: fmt.Errorf("not authorized")}, "MQTT subscribe failed"},
		{"no answer", fakeToken{}, "MQTT subscribe timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.TakeAll()
			checkSubscribe("porch", "home/porch/state", tt.token)

			entries := logs.TakeAll()
			if tt.want == "" {
				if len(entries) != 0 {
					t.Errorf("logged %v, want nothing", entries)
				}
				return
			}
			if len(entries) != 1 || entries[0].Message != tt.want {
				t.Fatalf("logged %v, want %q", entries, tt.want)
			}
			if got := entries[0].ContextMap()["topic"]; got != "home/porch/state" {
				t.Errorf("topic field = %v", got)
			}
		})
	}
}
