package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for a browse
	DefaultScanTimeout = 5 * time.Second
)

// Scanner browses for one mDNS service type
type Scanner struct {
	// ServiceType to browse, e.g. "_home-assistant._tcp"
	ServiceType string

	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a scanner for serviceType with default settings
func NewScanner(serviceType string) *Scanner {
	return &Scanner{
		ServiceType: serviceType,
		Timeout:     DefaultScanTimeout,
	}
}

// Scan collects every instance answering within the timeout.
func (s *Scanner) Scan(ctx context.Context) ([]*Service, error) {
	var mu sync.Mutex
	services := make([]*Service, 0)

	err := s.browse(ctx, func(svc *Service) bool {
		mu.Lock()
		services = append(services, svc)
		mu.Unlock()
		return true
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return services, nil
}

// First returns the first instance that answers.
func (s *Scanner) First(ctx context.Context) (*Service, error) {
	found := make(chan *Service, 1)

	err := s.browse(ctx, func(svc *Service) bool {
		select {
		case found <- svc:
		default:
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	select {
	case svc := <-found:
		return svc, nil
	default:
		return nil, fmt.Errorf("no %s service found within %v", s.ServiceType, s.Timeout)
	}
}

// browse feeds parsed entries to fn until the timeout or until fn returns
// false. It returns after the entry consumer has finished.
func (s *Scanner) browse(ctx context.Context, fn func(*Service) bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := parseServiceEntry(entry)
				if svc == nil {
					continue
				}
				if !fn(svc) {
					cancel()
					return
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, s.ServiceType, ServiceDomain, entries); err != nil {
		cancel()
		<-done
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Service.
// Returns nil if the entry carries no address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Service {
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	}

	// Fallback to IPv6 if no IPv4
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return nil
	}

	return &Service{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     parseText(entry.Text),
		DiscoveredAt: time.Now(),
	}
}

// parseText splits TXT records in "key=value" format. A bare key maps to "".
func parseText(text []string) map[string]string {
	metadata := make(map[string]string, len(text))
	for _, txt := range text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}
