package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/neuhausf/fauxmo/internal/logging"
	"go.uber.org/zap"
)

// DeviceService is the type emulated devices are advertised as. The
// setup.xml path is carried in the TXT record.
const DeviceService = "_http._tcp"

// Advertiser publishes emulated devices over mDNS.
type Advertiser struct {
	// Interfaces restricts announcements; nil means all.
	Interfaces []net.Interface

	mu      sync.Mutex
	servers []*zeroconf.Server
}

// Advertise registers one device. The record is withdrawn by Shutdown.
func (a *Advertiser) Advertise(name, serial string, port int) error {
	text := []string{
		"path=/setup.xml",
		"serial=" + serial,
		"model=Insight",
		"manufacturer=Belkin International Inc.",
	}
	server, err := zeroconf.Register(name, DeviceService, ServiceDomain, port, text, a.Interfaces)
	if err != nil {
		return fmt.Errorf("failed to advertise %q over mDNS: %w", name, err)
	}

	a.mu.Lock()
	a.servers = append(a.servers, server)
	a.mu.Unlock()

	logging.Debug("Advertised device over mDNS",
		zap.String("device", name),
		zap.String("serial", serial),
		zap.Int("port", port),
	)
	return nil
}

// Count reports how many devices are advertised.
func (a *Advertiser) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.servers)
}

// Shutdown withdraws every record.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	servers := a.servers
	a.servers = nil
	a.mu.Unlock()

	for _, s := range servers {
		s.Shutdown()
	}
}
