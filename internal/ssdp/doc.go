// Package ssdp answers UPnP discovery for the emulated devices.
//
// Echo devices find WeMo switches by multicasting an M-SEARCH to
// 239.255.255.250:1900. The responder joins that group and, for each
// matching search, unicasts one reply per device pointing at the device's
// setup.xml. Replies are spread over a random delay bounded by the search's
// MX header (at most five seconds), drawn separately for each device.
//
// The socket is opened with SO_REUSEADDR and SO_REUSEPORT so fauxmo can
// run next to other SSDP software on the same host.
//
// The package also contains a small M-SEARCH client used by
// `fauxmo discover` to list WeMo devices on the network.
package ssdp
