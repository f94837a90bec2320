// Package server implements the per-device TCP responder.
//
// Every emulated WeMo switch gets its own listener. Controllers open a
// connection, send a single HTTP/1.1 request and read until the connection
// closes, so the server never keeps connections alive.
//
// # Connection Lifecycle
//
//  1. Accept and track the connection
//  2. Read one request (headers and the Content-Length body) under a read deadline
//  3. Dispatch to protocol.Handler
//  4. Write the exact response bytes, if any
//  5. Close
//
// Unknown requests and failed actions get no response; the connection is
// closed without a status line.
//
// # Ports
//
// A device configured with port 0 is bound to a free port. The bound port
// is stored back on the plugin, which is where the SSDP responder reads it
// from:
//
//	srv := server.New(server.Config{Host: ip, Port: p.Port()}, handler)
//	if err := srv.Listen(); err != nil {
//	    return err
//	}
//	ssdp.AddDevice(p.Name(), ip, srv.Port())
//	go srv.Serve(ctx)
//
// # Graceful Shutdown
//
// Shutdown closes the listener and any live connections, then waits up to
// ten seconds (or until ctx ends) for in-flight handlers.
package server
