// Package protocol implements the WeMo Insight HTTP and SOAP protocol.
//
// Amazon Echo devices talk to WeMo switches over plain HTTP/1.1 on a
// per-device TCP port. They fetch a device description, optionally the
// service descriptions it links to, and then send SOAP actions to switch
// the device or read its state.
//
// # Requests
//
//	GET  /setup.xml                  device description (friendlyName, UDN)
//	*    /eventservice.xml           basicevent1 service description
//	*    /metainfoservice.xml        metainfo1 service description
//	*    /insightservice.xml         insight1 service description
//	POST /upnp/control/timesync1     TimeSync, answered with the current time
//	POST /upnp/control/basicevent1   SOAP action (see below)
//	POST /upnp/control/insight1      SOAP action (see below)
//
// The SOAP action is chosen by the SOAPACTION header, whichever control
// path carried it:
//
//	urn:Belkin:service:basicevent:1#GetBinaryState
//	urn:Belkin:service:basicevent:1#SetBinaryState
//	urn:Belkin:service:basicevent:1#GetFriendlyName
//	urn:Belkin:service:insight:1#GetInsightParams
//
// Anything else gets no response at all; the connection is simply closed.
// The same happens when an action fails, e.g. a plugin could not reach the
// device it controls.
//
// # Responses
//
// Responses are built byte for byte. WithHTTPHeaders adds a fixed header
// block in a fixed order, and every document ends exactly as real WeMo
// firmware ends it.
//
// # Usage Example
//
//	h := protocol.NewHandler(p, metricsObserver, stateStore)
//	resp, ok := h.Serve(ctx, protocol.Request{
//	    Method:     "POST",
//	    Path:       "/upnp/control/basicevent1",
//	    SOAPAction: `"urn:Belkin:service:basicevent:1#GetBinaryState"`,
//	})
//	if ok {
//	    conn.Write(resp)
//	}
//	conn.Close()
//
// # Serials
//
// A device serial is the UUIDv3 of its name, so renaming a device makes it a
// new device to the Echo while restarts keep it the same.
package protocol
