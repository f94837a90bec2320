package ssdp

import (
	"strconv"
	"strings"
	"time"

	"github.com/neuhausf/fauxmo/internal/protocol"
)

const (
	MulticastAddr = "239.255.255.250"
	Port          = 1900

	// MaxMX caps the reply delay a searcher may ask for, in seconds.
	MaxMX = 5.0
)

// Search targets we answer, in match order. A bare "urn:Belkin:device:"
// prefix is answered as the wildcard.
const (
	TargetBelkinDevices = "urn:Belkin:device:**"
	targetBelkinPrefix  = "urn:Belkin:device:"
	TargetBasicEvent    = "urn:Belkin:service:basicevent:1"
	TargetInsight       = "urn:Belkin:service:insight:1"
	TargetRootDevice    = "upnp:rootdevice"
	TargetAll           = "ssdp:all"
)

var searchTargets = []string{
	TargetBelkinDevices,
	targetBelkinPrefix,
	TargetBasicEvent,
	TargetInsight,
	TargetRootDevice,
	TargetAll,
}

// SearchRequest is a parsed M-SEARCH request we should answer.
type SearchRequest struct {
	ST string  // search target to echo back
	MX float64 // requested maximum delay in seconds, 0 if absent
}

// ParseSearch checks whether data is an M-SEARCH for a WeMo device. Header
// matching follows what Echo devices send: the MAN header is matched without
// regard to case, the ST header must be spelled "ST: " exactly.
func ParseSearch(data string) (SearchRequest, bool) {
	if !strings.Contains(strings.ToLower(data), `man: "ssdp:discover"`) {
		return SearchRequest{}, false
	}

	var st string
	for _, target := range searchTargets {
		if strings.Contains(data, "ST: "+target) {
			st = target
			break
		}
	}
	if st == "" {
		return SearchRequest{}, false
	}
	if st == targetBelkinPrefix {
		st = TargetBelkinDevices
	}

	return SearchRequest{ST: st, MX: parseMX(data)}, true
}

// parseMX reads the first "MX: " line. Only plain decimal numbers count.
func parseMX(data string) float64 {
	for _, line := range strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n") {
		if !strings.HasPrefix(line, "MX: ") {
			continue
		}
		fields := strings.Fields(line)
		v := fields[len(fields)-1]
		if !isDecimal(v) {
			return 0
		}
		mx, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return mx
	}
	return 0
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// Delay clamps mx into [0, MaxMX].
func Delay(mx float64) float64 {
	return max(0, min(MaxMX, mx))
}

// Response builds the unicast reply advertising one device.
//
//	HTTP/1.1 200 OK
//	CACHE-CONTROL: max-age=86400
//	DATE: <now>
//	EXT:
//	LOCATION: http://<ip>:<port>/setup.xml
//	OPT: "http://schemas.upnp.org/upnp/1/0/"; ns=01
//	01-NLS: <random uuid>
//	SERVER: Unspecified, UPnP/1.0, Unspecified
//	ST: <st>
//	USN: uuid:Insight-1_0-<serial>::<st>
func Response(d Device, st string, now time.Time, nls string) []byte {
	lines := []string{
		"HTTP/1.1 200 OK",
		"CACHE-CONTROL: max-age=86400",
		"DATE: " + protocol.HTTPDate(now),
		"EXT:",
		"LOCATION: " + d.Location(),
		`OPT: "http://schemas.upnp.org/upnp/1/0/"; ns=01`,
		"01-NLS: " + nls,
		"SERVER: " + protocol.ServerHeader,
		"ST: " + st,
		"USN: " + protocol.UDN(d.Serial) + "::" + st,
	}
	return []byte(strings.Join(lines, protocol.CRLF) + protocol.CRLF + protocol.CRLF)
}
