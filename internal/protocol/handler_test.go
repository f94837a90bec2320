package protocol

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neuhausf/fauxmo/internal/plugin"
)

type testPlugin struct {
	*plugin.Base
	state plugin.State
	err   error
	calls []string
}

func (p *testPlugin) On(context.Context) error {
	p.calls = append(p.calls, "on")
	return p.err
}

func (p *testPlugin) Off(context.Context) error {
	p.calls = append(p.calls, "off")
	return p.err
}

func (p *testPlugin) State(context.Context) plugin.State { return p.state }

func newTestPlugin(t *testing.T, name string) *testPlugin {
	t.Helper()
	b, err := plugin.NewBase(plugin.Options{Name: name, Port: 12345})
	if err != nil {
		t.Fatal(err)
	}
	return &testPlugin{Base: b, state: plugin.StateOff}
}

type recorder struct {
	mu      sync.Mutex
	routes  []string
	actions []string
	errs    []error
	changes []plugin.State
}

func (r *recorder) Served(device, route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *recorder) Action(device, action string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	r.errs = append(r.errs, err)
}

func (r *recorder) StateChanged(device, serial string, state plugin.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, state)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, *testPlugin, *recorder) {
	t.Helper()
	p := newTestPlugin(t, "kitchen light")
	rec := &recorder{}
	h := NewHandler(p, rec)
	h.Now = func() time.Time { return fixedNow }
	h.OnTime = func() int { return 4242 }
	return h, p, rec
}

func control(action, body string) Request {
	return Request{
		Method:     "POST",
		Path:       "/upnp/control/basicevent1",
		SOAPAction: `"urn:Belkin:service:basicevent:1#` + action + `"`,
		Body:       body,
	}
}

func bodyOf(t *testing.T, resp []byte) string {
	t.Helper()
	_, body, ok := strings.Cut(string(resp), "\r\n\r\n")
	if !ok {
		t.Fatalf("response has no header terminator: %q", resp)
	}
	return body
}

func TestServeDocuments(t *testing.T) {
	h, _, rec := newTestHandler(t)

	tests := []struct {
		name  string
		req   Request
		route string
		want  string
	}{
		{"setup", Request{Method: "GET", Path: "/setup.xml"}, RouteSetup, SetupXML("kitchen light", Serial("kitchen light"))},
		{"eventservice", Request{Method: "GET", Path: "/eventservice.xml"}, RouteEventService, EventServiceXML()},
		{"metainfo", Request{Method: "GET", Path: "/metainfoservice.xml"}, RouteMetaInfo, MetaInfoServiceXML()},
		{"insight", Request{Method: "GET", Path: "/insightservice.xml"}, RouteInsight, InsightServiceXML()},
		{"timesync", Request{Method: "POST", Path: "/upnp/control/timesync1"}, RouteTimeSync, TimeSyncResponse(fixedNow)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, ok := h.Serve(context.Background(), tt.req)
			if !ok {
				t.Fatal("Serve() ok = false")
			}
			if string(resp) != string(WithHTTPHeaders(tt.want, fixedNow)) {
				t.Errorf("Serve() =\n%s", resp)
			}
			if last := rec.routes[len(rec.routes)-1]; last != tt.route {
				t.Errorf("route = %s, want %s", last, tt.route)
			}
		})
	}
}

func TestServeUnknown(t *testing.T) {
	h, _, rec := newTestHandler(t)

	for _, req := range []Request{
		{Method: "GET", Path: "/"},
		{Method: "POST", Path: "/setup.xml"},
		{Method: "GET", Path: "/upnp/control/basicevent1"},
		{Method: "SUBSCRIBE", Path: "/upnp/event/basicevent1"},
	} {
		if resp, ok := h.Serve(context.Background(), req); ok || resp != nil {
			t.Errorf("Serve(%s %s) = %q, %v; want no response", req.Method, req.Path, resp, ok)
		}
	}
	for _, r := range rec.routes {
		if r != RouteUnknown {
			t.Errorf("route = %s, want unknown", r)
		}
	}
}

func TestGetBinaryState(t *testing.T) {
	tests := []struct {
		state  plugin.State
		want   string
		wantOK bool
	}{
		{plugin.StateOn, "<BinaryState>1</BinaryState>", true},
		{plugin.StateOff, "<BinaryState>0</BinaryState>", true},
		{plugin.StateUnknown, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			h, p, rec := newTestHandler(t)
			p.state = tt.state

			resp, ok := h.Serve(context.Background(), control("GetBinaryState", ""))
			if ok != tt.wantOK {
				t.Fatalf("Serve() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				if !errors.Is(rec.errs[0], ErrUnknownState) {
					t.Errorf("observer err = %v, want ErrUnknownState", rec.errs[0])
				}
				return
			}
			body := bodyOf(t, resp)
			if !strings.Contains(body, "<u:GetBinaryStateResponse") || !strings.Contains(body, tt.want) {
				t.Errorf("body = %s", body)
			}
		})
	}
}

func TestSetBinaryState(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		pluginErr  error
		wantOK     bool
		wantValue  string
		wantLatest plugin.State
		wantCalls  string
	}{
		{
			name:       "on",
			body:       "<BinaryState>1</BinaryState>",
			wantOK:     true,
			wantValue:  BinaryStateOnValue,
			wantLatest: plugin.StateOn,
			wantCalls:  "on",
		},
		{
			name:       "off",
			body:       "<BinaryState>0</BinaryState>",
			wantOK:     true,
			wantValue:  BinaryStateOffValue,
			wantLatest: plugin.StateOff,
			wantCalls:  "off",
		},
		{
			name:       "plugin fails",
			body:       "<BinaryState>1</BinaryState>",
			pluginErr:  plugin.NewRemoteError("kitchen light", "on", "unavailable"),
			wantOK:     false,
			wantLatest: plugin.StateOff,
			wantCalls:  "on",
		},
		{
			name:       "no state in body",
			body:       "<BinaryState>7</BinaryState>",
			wantOK:     false,
			wantLatest: plugin.StateOff,
			wantCalls:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, p, rec := newTestHandler(t)
			p.err = tt.pluginErr

			resp, ok := h.Serve(context.Background(), control("SetBinaryState", tt.body))
			if ok != tt.wantOK {
				t.Fatalf("Serve() ok = %v, want %v", ok, tt.wantOK)
			}
			if got := strings.Join(p.calls, ","); got != tt.wantCalls {
				t.Errorf("plugin calls = %q, want %q", got, tt.wantCalls)
			}
			if p.Latest() != tt.wantLatest {
				t.Errorf("Latest() = %v, want %v", p.Latest(), tt.wantLatest)
			}
			if !ok {
				if len(rec.changes) != 0 {
					t.Errorf("StateChanged called on failure: %v", rec.changes)
				}
				return
			}
			body := bodyOf(t, resp)
			if !strings.Contains(body, "<u:SetBinaryStateResponse") || !strings.Contains(body, "<BinaryState>"+tt.wantValue+"</BinaryState>") {
				t.Errorf("body = %s", body)
			}
			if len(rec.changes) != 1 || rec.changes[0] != tt.wantLatest {
				t.Errorf("StateChanged = %v, want [%v]", rec.changes, tt.wantLatest)
			}
		})
	}
}

func TestGetFriendlyName(t *testing.T) {
	h, _, _ := newTestHandler(t)

	resp, ok := h.Serve(context.Background(), control("GetFriendlyName", ""))
	if !ok {
		t.Fatal("Serve() ok = false")
	}
	if body := bodyOf(t, resp); !strings.Contains(body, "<FriendlyName>kitchen light</FriendlyName>") {
		t.Errorf("body = %s", body)
	}
}

func TestGetInsightParams(t *testing.T) {
	h, _, rec := newTestHandler(t)

	req := Request{
		Method:     "POST",
		Path:       "/upnp/control/insight1",
		SOAPAction: `"urn:Belkin:service:insight:1#GetInsightParams"`,
	}
	resp, ok := h.Serve(context.Background(), req)
	if !ok {
		t.Fatal("Serve() ok = false")
	}
	want := ActionResponse("Get", "InsightParams", ServiceInsight, InsightParams(4242))
	if body := bodyOf(t, resp); body != want {
		t.Errorf("body = %s\nwant %s", body, want)
	}
	if rec.actions[0] != ActionGetInsightParams {
		t.Errorf("action = %s", rec.actions[0])
	}
}

func TestControlPathsAreInterchangeable(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := control("GetFriendlyName", "")
	req.Path = "/upnp/control/insight1"
	if _, ok := h.Serve(context.Background(), req); !ok {
		t.Error("basicevent action over insight1 should be served")
	}
}

func TestUnknownAction(t *testing.T) {
	h, _, _ := newTestHandler(t)

	for _, action := range []string{"GetLogFileURL", "SetSmartDevInfo"} {
		if _, ok := h.Serve(context.Background(), control(action, "")); ok {
			t.Errorf("action %s should not be answered", action)
		}
	}
}

func TestDefaultOnTimeRange(t *testing.T) {
	h := NewHandler(newTestPlugin(t, "fan"))
	for i := 0; i < 1000; i++ {
		v := h.OnTime()
		if v < InsightOnTimeMin || v > InsightOnTimeMax {
			t.Fatalf("OnTime() = %d, out of range", v)
		}
	}
}

func TestSwitch(t *testing.T) {
	h, p, rec := newTestHandler(t)

	if err := h.Switch(context.Background(), true); err != nil {
		t.Fatalf("Switch() error = %v", err)
	}
	if p.Latest() != plugin.StateOn {
		t.Errorf("Latest() = %v, want on", p.Latest())
	}
	if len(rec.changes) != 1 {
		t.Errorf("StateChanged calls = %d, want 1", len(rec.changes))
	}
}
