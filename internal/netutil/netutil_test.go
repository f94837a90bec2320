package netutil

import (
	"errors"
	"net"
	"testing"
)

func TestLocalIPExplicit(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"192.168.1.20", "192.168.1.20", false},
		{" 10.0.0.5 ", "10.0.0.5", false},
		{"fe80::1", "", true},
		{"not-an-ip", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LocalIP(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LocalIP(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("LocalIP(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestLocalIPAutoUsesGateway(t *testing.T) {
	orig := discoverInterface
	t.Cleanup(func() { discoverInterface = orig })

	discoverInterface = func() (net.IP, error) { return net.ParseIP("192.168.7.9"), nil }

	for _, in := range []string{"auto", "AUTO", ""} {
		got, err := LocalIP(in)
		if err != nil {
			t.Fatalf("LocalIP(%q) error = %v", in, err)
		}
		if got.String() != "192.168.7.9" {
			t.Errorf("LocalIP(%q) = %s, want 192.168.7.9", in, got)
		}
	}
}

func TestLocalIPAutoFallsBackToProbe(t *testing.T) {
	origDiscover, origProbe := discoverInterface, probeAddr
	t.Cleanup(func() { discoverInterface, probeAddr = origDiscover, origProbe })

	discoverInterface = func() (net.IP, error) { return nil, errors.New("no route") }
	probeAddr = "127.0.0.1:9"

	got, err := LocalIP("auto")
	if err != nil {
		t.Fatalf("LocalIP() error = %v", err)
	}
	if !got.IsLoopback() {
		t.Errorf("LocalIP() = %s, want loopback source address", got)
	}
}

func TestInterfaceForIP(t *testing.T) {
	iface, err := InterfaceForIP(net.ParseIP("127.0.0.1"))
	if err != nil {
		t.Skipf("no loopback interface with 127.0.0.1: %v", err)
	}
	if iface.Flags&net.FlagLoopback == 0 {
		t.Errorf("InterfaceForIP(127.0.0.1) = %s, not a loopback interface", iface.Name)
	}

	if _, err := InterfaceForIP(net.ParseIP("203.0.113.254")); err == nil {
		t.Error("InterfaceForIP() should fail for an address no interface owns")
	}
}
