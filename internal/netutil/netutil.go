// Package netutil picks the address fauxmo advertises and the interface it
// joins multicast groups on.
package netutil

import (
	"fmt"
	"net"
	"strings"

	"github.com/jackpal/gateway"
	"github.com/neuhausf/fauxmo/internal/logging"
	"go.uber.org/zap"
)

// Auto asks LocalIP to find the address itself.
const Auto = "auto"

// probeAddr is only used to pick a route; nothing is sent.
var probeAddr = "8.8.8.8:80"

// discoverInterface is replaceable in tests.
var discoverInterface = gateway.DiscoverInterface

// LocalIP resolves the configured ip_address. "auto" (or empty) selects the
// IPv4 address of the interface holding the default route. Any other value
// must be an IPv4 address and is returned as is.
func LocalIP(configured string) (net.IP, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" && !strings.EqualFold(configured, Auto) {
		ip := net.ParseIP(configured)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("ip_address %q is not an IPv4 address", configured)
		}
		return ip.To4(), nil
	}

	ip, err := discoverInterface()
	if err == nil && ip.To4() != nil && !ip.IsLoopback() {
		return ip.To4(), nil
	}
	logging.Debug("Default route lookup failed, probing with UDP", zap.Error(err))

	ip, probeErr := probeIP()
	if probeErr != nil {
		return nil, fmt.Errorf("could not determine local IP (gateway: %v): %w", err, probeErr)
	}
	return ip, nil
}

// probeIP dials a UDP socket, which selects a source address without
// sending anything.
func probeIP() (net.IP, error) {
	conn, err := net.Dial("udp4", probeAddr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.To4() == nil {
		return nil, fmt.Errorf("no IPv4 source address for %s", probeAddr)
	}
	return addr.IP.To4(), nil
}

// InterfaceForIP returns the interface that owns ip.
func InterfaceForIP(ip net.IP) (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ipNet.IP.Equal(ip) {
				return &iface, nil
			}
		}
	}
	return nil, fmt.Errorf("no interface has address %s", ip)
}
