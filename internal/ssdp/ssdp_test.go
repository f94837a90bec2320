package ssdp

import (
	"context"
	"net"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neuhausf/fauxmo/internal/protocol"
)

func msearch(st, mx string) string {
	lines := []string{
		"M-SEARCH * HTTP/1.1",
		"HOST: 239.255.255.250:1900",
		`MAN: "ssdp:discover"`,
	}
	if mx != "" {
		lines = append(lines, "MX: "+mx)
	}
	lines = append(lines, "ST: "+st, "", "")
	return strings.Join(lines, "\r\n")
}

func TestParseSearch(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		wantST string
		wantMX float64
		wantOK bool
	}{
		{"belkin wildcard", msearch("urn:Belkin:device:**", "3"), TargetBelkinDevices, 3, true},
		{"belkin prefix", msearch("urn:Belkin:device:controllee:1", ""), TargetBelkinDevices, 0, true},
		{"basicevent", msearch("urn:Belkin:service:basicevent:1", "1"), TargetBasicEvent, 1, true},
		{"insight", msearch("urn:Belkin:service:insight:1", ""), TargetInsight, 0, true},
		{"rootdevice", msearch("upnp:rootdevice", "2.5"), TargetRootDevice, 2.5, true},
		{"all", msearch("ssdp:all", ""), TargetAll, 0, true},
		{"other target", msearch("urn:schemas-upnp-org:device:MediaRenderer:1", "1"), "", 0, false},
		{"no man", "M-SEARCH * HTTP/1.1\r\nST: ssdp:all\r\n\r\n", "", 0, false},
		{"lowercase man", "M-SEARCH * HTTP/1.1\r\nman: \"SSDP:DISCOVER\"\r\nST: ssdp:all\r\n\r\n", TargetAll, 0, true},
		{"notify", "NOTIFY * HTTP/1.1\r\nNT: upnp:rootdevice\r\nNTS: ssdp:alive\r\n\r\n", "", 0, false},
		{"negative mx", msearch("ssdp:all", "-1"), TargetAll, 0, true},
		{"garbage mx", msearch("ssdp:all", "soon"), TargetAll, 0, true},
		{"two dots", msearch("ssdp:all", "1.2.3"), TargetAll, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSearch(tt.data)
			if ok != tt.wantOK {
				t.Fatalf("ParseSearch() ok = %v, want %v", ok, tt.wantOK)
			}
			if got.ST != tt.wantST || got.MX != tt.wantMX {
				t.Errorf("ParseSearch() = %+v, want ST=%s MX=%v", got, tt.wantST, tt.wantMX)
			}
		})
	}
}

func TestParseSearchTargetOrder(t *testing.T) {
	// Both targets appear; the Belkin wildcard comes first in match order.
	data := msearch("ssdp:all", "") + "ST: urn:Belkin:device:**\r\n"
	got, ok := ParseSearch(data)
	if !ok || got.ST != TargetBelkinDevices {
		t.Errorf("ParseSearch() = %+v, %v; want %s", got, ok, TargetBelkinDevices)
	}
}

func TestDelay(t *testing.T) {
	for in, want := range map[float64]float64{-3: 0, 0: 0, 2.5: 2.5, 5: 5, 120: 5} {
		if got := Delay(in); got != want {
			t.Errorf("Delay(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestResponse(t *testing.T) {
	d := Device{Name: "kitchen light", IP: "192.168.1.20", Port: 49915, Serial: protocol.Serial("kitchen light")}
	now := time.Date(2021, 1, 25, 0, 0, 0, 0, time.UTC)

	got := string(Response(d, TargetBelkinDevices, now, "00000000-0000-4000-8000-000000000000"))
	want := "HTTP/1.1 200 OK\r\n" +
		"CACHE-CONTROL: max-age=86400\r\n" +
		"DATE: Mon, 25 Jan 2021 00:00:00 GMT\r\n" +
		"EXT:\r\n" +
		"LOCATION: http://192.168.1.20:49915/setup.xml\r\n" +
		"OPT: \"http://schemas.upnp.org/upnp/1/0/\"; ns=01\r\n" +
		"01-NLS: 00000000-0000-4000-8000-000000000000\r\n" +
		"SERVER: Unspecified, UPnP/1.0, Unspecified\r\n" +
		"ST: urn:Belkin:device:**\r\n" +
		"USN: uuid:Insight-1_0-9c08cd83-690f-3a0d-bd26-fed9e480426b::urn:Belkin:device:**\r\n" +
		"\r\n"
	if got != want {
		t.Errorf("Response() =\n%q\nwant\n%q", got, want)
	}
}

func startResponder(t *testing.T, r *Responder) *net.UDPAddr {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Listen(ctx); err != nil {
		cancel()
		t.Fatalf("Listen() error = %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	})
	return r.LocalAddr()
}

func readAll(t *testing.T, conn *net.UDPConn, n int, timeout time.Duration) []string {
	t.Helper()
	var out []string
	buf := make([]byte, maxDatagram)
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	for len(out) < n {
		m, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			break
		}
		out = append(out, string(buf[:m]))
	}
	return out
}

func TestResponderAnswersEachDevice(t *testing.T) {
	var searches atomic.Int32
	r := NewResponder(Config{
		Addr:             "127.0.0.1:0",
		DisableMulticast: true,
		OnSearch:         func(string, int) { searches.Add(1) },
	})
	r.AddDevice("lamp", "127.0.0.1", 12340)
	r.AddDevice("fan", "127.0.0.1", 12341)
	addr := startResponder(t, r)

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if _, err := client.WriteToUDP([]byte(msearch("urn:Belkin:device:**", "1")), addr); err != nil {
		t.Fatal(err)
	}

	replies := readAll(t, client, 2, 3*time.Second)
	if len(replies) != 2 {
		t.Fatalf("got %d replies, want 2", len(replies))
	}
	var locations []string
	for _, reply := range replies {
		for _, line := range strings.Split(reply, "\r\n") {
			if loc, ok := strings.CutPrefix(line, "LOCATION: "); ok {
				locations = append(locations, loc)
			}
		}
	}
	sort.Strings(locations)
	want := []string{"http://127.0.0.1:12340/setup.xml", "http://127.0.0.1:12341/setup.xml"}
	if strings.Join(locations, " ") != strings.Join(want, " ") {
		t.Errorf("locations = %v, want %v", locations, want)
	}
	if searches.Load() != 1 {
		t.Errorf("OnSearch calls = %d, want 1", searches.Load())
	}
}

func TestResponderIgnoresOtherSearches(t *testing.T) {
	r := NewResponder(Config{Addr: "127.0.0.1:0", DisableMulticast: true})
	r.AddDevice("lamp", "127.0.0.1", 12340)
	addr := startResponder(t, r)

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	_, _ = client.WriteToUDP([]byte(msearch("urn:dial-multiscreen-org:service:dial:1", "1")), addr)
	if replies := readAll(t, client, 1, 300*time.Millisecond); len(replies) != 0 {
		t.Errorf("got %d replies, want none", len(replies))
	}
}

func TestResponderDropsPendingOnShutdown(t *testing.T) {
	r := NewResponder(Config{Addr: "127.0.0.1:0", DisableMulticast: true})
	r.Rand = func() float64 { return 1 }
	r.AddDevice("lamp", "127.0.0.1", 12340)

	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Listen(ctx); err != nil {
		cancel()
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	defer client.Close()

	// MX 5 with Rand pinned to 1 delays the reply by five seconds.
	_, _ = client.WriteToUDP([]byte(msearch("ssdp:all", "5")), r.LocalAddr())
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Serve() took %v to return, pending reply was not canceled", elapsed)
	}
	if replies := readAll(t, client, 1, 200*time.Millisecond); len(replies) != 0 {
		t.Error("pending reply was sent after shutdown")
	}
}

func TestDevicesCopy(t *testing.T) {
	r := NewResponder(Config{})
	r.AddDevice("lamp", "10.0.0.2", 1)
	got := r.Devices()
	got[0].Name = "changed"
	if r.Devices()[0].Name != "lamp" {
		t.Error("Devices() should return a copy")
	}
	if r.Devices()[0].Serial != protocol.Serial("lamp") {
		t.Error("AddDevice() should derive the serial from the name")
	}
}
