package discovery

import (
	"context"
	"net/url"
	"strconv"
)

// HomeAssistantService is the type Home Assistant advertises itself as.
const HomeAssistantService = "_home-assistant._tcp"

// Endpoint is where a Home Assistant instance can be reached.
type Endpoint struct {
	Protocol string // "http" or "https"
	Host     string
	Port     int
}

// FindHomeAssistant returns the first Home Assistant instance on the LAN.
func FindHomeAssistant(ctx context.Context) (Endpoint, error) {
	svc, err := NewScanner(HomeAssistantService).First(ctx)
	if err != nil {
		return Endpoint{}, err
	}
	return HomeAssistantEndpoint(svc), nil
}

// HomeAssistantEndpoint prefers the internal_url or base_url TXT records
// over the advertised address.
func HomeAssistantEndpoint(svc *Service) Endpoint {
	for _, key := range []string{"internal_url", "base_url"} {
		raw := svc.GetMetadata(key)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		ep := Endpoint{Protocol: u.Scheme, Host: u.Hostname(), Port: svc.Port}
		if p, err := strconv.Atoi(u.Port()); err == nil {
			ep.Port = p
		} else if ep.Port == 0 && u.Scheme == "https" {
			ep.Port = 443
		}
		if ep.Protocol == "" {
			ep.Protocol = "http"
		}
		return ep
	}
	return Endpoint{Protocol: "http", Host: svc.IP, Port: svc.Port}
}
