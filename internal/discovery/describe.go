package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/neuhausf/fauxmo/internal/version"
)

// DefaultDescribeTimeout bounds a setup.xml fetch.
const DefaultDescribeTimeout = 3 * time.Second

// Description is the part of a UPnP device description fauxmo shows.
type Description struct {
	DeviceType   string `xml:"device>deviceType"`
	FriendlyName string `xml:"device>friendlyName"`
	Manufacturer string `xml:"device>manufacturer"`
	ModelName    string `xml:"device>modelName"`
	SerialNumber string `xml:"device>serialNumber"`
	UDN          string `xml:"device>UDN"`
}

// Describe fetches and parses the device description at location, the
// LOCATION header of an SSDP answer.
func Describe(ctx context.Context, client *http.Client, location string) (*Description, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultDescribeTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", location, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", location, resp.StatusCode)
	}

	var desc Description
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&desc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", location, err)
	}
	return &desc, nil
}
