// Package discovery finds services on the local network and announces the
// emulated devices.
//
// # mDNS
//
// Scanner browses for one service type. Home Assistant advertises itself as
// "_home-assistant._tcp"; FindHomeAssistant turns the first answer into an
// Endpoint for the Home Assistant plugin when no ha_host is configured.
//
// Advertiser publishes each emulated device as "_http._tcp" with the
// setup.xml path in its TXT record. Controllers find devices through SSDP;
// the mDNS record is for network tools and is optional.
//
// # Device descriptions
//
// Describe fetches the setup.xml named in an SSDP LOCATION header and
// returns its friendly name, model and serial.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Firewall must allow mDNS (UDP port 5353)
package discovery
