package protocol

import (
	"strings"
)

// SOAPAction identifies the service and action named in a SOAPACTION
// header, e.g. "urn:Belkin:service:basicevent:1#SetBinaryState".
type SOAPAction struct {
	Service string // lowercased, without version: "basicevent"
	Action  string // as sent: "SetBinaryState"
}

// Is reports whether a names the given service and action, ignoring case.
func (a SOAPAction) Is(service, action string) bool {
	return strings.EqualFold(a.Service, service) && strings.EqualFold(a.Action, action)
}

const soapActionPrefix = "urn:belkin:service:"

// ParseSOAPAction parses a SOAPACTION header value. Quotes and whitespace
// are ignored and the URN is matched without regard to case. Only version 1
// services are recognized.
func ParseSOAPAction(header string) (SOAPAction, bool) {
	v := strings.Map(func(r rune) rune {
		switch r {
		case '"', ' ', '\t':
			return -1
		}
		return r
	}, header)

	if len(v) < len(soapActionPrefix) || !strings.EqualFold(v[:len(soapActionPrefix)], soapActionPrefix) {
		return SOAPAction{}, false
	}
	v = v[len(soapActionPrefix):]

	svc, action, ok := strings.Cut(v, "#")
	if !ok || action == "" {
		return SOAPAction{}, false
	}
	name, version, ok := strings.Cut(svc, ":")
	if !ok || name == "" || version != "1" {
		return SOAPAction{}, false
	}

	return SOAPAction{Service: strings.ToLower(name), Action: action}, true
}

const (
	binaryStateOff = "<BinaryState>0</BinaryState>"
	binaryStateOn  = "<BinaryState>1</BinaryState>"
)

// ParseBinaryState reads the requested state out of a SetBinaryState body.
// An "off" element wins when both are present.
func ParseBinaryState(body string) (on bool, ok bool) {
	switch {
	case strings.Contains(body, binaryStateOff):
		return false, true
	case strings.Contains(body, binaryStateOn):
		return true, true
	default:
		return false, false
	}
}
