package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service is one mDNS service instance found on the network
type Service struct {
	// Instance is the advertised instance name (e.g., "Home")
	Instance string

	// Hostname is the mDNS hostname (e.g., "homeassistant.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when the host has none
	IP string

	// Port is the advertised service port
	Port int

	// Metadata contains the TXT record key/value pairs
	Metadata map[string]string

	// DiscoveredAt is when the service was seen
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the service
func (s *Service) String() string {
	return fmt.Sprintf("%s (%s) at %s", s.Instance, s.Hostname, s.HostPort())
}

// HostPort joins IP and Port.
func (s *Service) HostPort() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Service) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
