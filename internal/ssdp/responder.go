package ssdp

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/protocol"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
)

const maxDatagram = 8192

// Device is one advertised switch.
type Device struct {
	Name   string
	IP     string
	Port   int
	Serial string
}

// Location is the URL of the device description.
func (d Device) Location() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port)) + "/setup.xml"
}

// Config holds the responder configuration
type Config struct {
	// Addr defaults to 0.0.0.0:1900.
	Addr string
	// Interface to join the multicast group on; nil lets the kernel pick.
	Interface *net.Interface
	// DisableMulticast skips joining the group, for unicast tests.
	DisableMulticast bool
	// OnSearch is called for every search that is answered.
	OnSearch func(st string, devices int)
}

// Responder answers SSDP M-SEARCH requests for every added device.
type Responder struct {
	config Config

	mu      sync.RWMutex
	devices []Device

	conn *net.UDPConn
	wg   sync.WaitGroup

	// Now and Rand are replaceable in tests.
	Now  func() time.Time
	Rand func() float64
}

// NewResponder creates a responder. Call Listen, or just Serve.
func NewResponder(config Config) *Responder {
	return &Responder{
		config: config,
		Now:    time.Now,
		Rand:   rand.Float64,
	}
}

// AddDevice advertises a device at ip:port. Safe to call while serving.
func (r *Responder) AddDevice(name, ip string, port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, Device{
		Name:   name,
		IP:     ip,
		Port:   port,
		Serial: protocol.Serial(name),
	})
}

// Devices returns a copy of the advertised devices.
func (r *Responder) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Listen opens the UDP socket with address reuse and joins the SSDP group.
func (r *Responder) Listen(ctx context.Context) error {
	addr := r.config.Addr
	if addr == "" {
		addr = net.JoinHostPort("0.0.0.0", strconv.Itoa(Port))
	}

	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	conn := pc.(*net.UDPConn)

	if !r.config.DisableMulticast {
		group := &net.UDPAddr{IP: net.ParseIP(MulticastAddr)}
		p := ipv4.NewPacketConn(conn)
		if err := p.JoinGroup(r.config.Interface, group); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to join multicast group %s: %w", MulticastAddr, err)
		}
		if err := p.SetMulticastLoopback(true); err != nil {
			logging.Debug("Could not enable multicast loopback", zap.Error(err))
		}
	}

	r.conn = conn
	iface := "default"
	if r.config.Interface != nil {
		iface = r.config.Interface.Name
	}
	logging.Info("SSDP responder listening",
		zap.String("addr", conn.LocalAddr().String()),
		zap.String("interface", iface),
		zap.Bool("multicast", !r.config.DisableMulticast),
	)
	return nil
}

// Close releases the UDP socket. Serve closes it on its own when its
// context ends; Close is for callers that Listen but never Serve.
func (r *Responder) Close() error {
	if r.conn == nil {
		return nil
	}
	if err := r.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// LocalAddr returns the bound address, or nil before Listen.
func (r *Responder) LocalAddr() *net.UDPAddr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr().(*net.UDPAddr)
}

// Serve reads datagrams until ctx is canceled. Pending delayed replies are
// dropped when it returns.
func (r *Responder) Serve(ctx context.Context) error {
	if r.conn == nil {
		if err := r.Listen(ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		r.wg.Wait()
	}()
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logging.Warn("SSDP read failed", zap.Error(err))
			continue
		}
		r.handle(ctx, string(buf[:n]), addr)
	}
}

func (r *Responder) handle(ctx context.Context, data string, addr *net.UDPAddr) {
	logging.Debug("SSDP datagram received", zap.String("remote_addr", addr.String()))
	logging.LogRawBytes("SSDP datagram", []byte(data))

	search, ok := ParseSearch(data)
	if !ok {
		return
	}

	devices := r.Devices()
	logging.LogSSDPSearch(addr.String(), search.ST, search.MX, len(devices))
	if r.config.OnSearch != nil {
		r.config.OnSearch(search.ST, len(devices))
	}

	now := r.Now()
	maxDelay := Delay(search.MX)
	for _, d := range devices {
		resp := Response(d, search.ST, now, uuid.NewString())
		delay := time.Duration(r.Rand() * maxDelay * float64(time.Second))

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.send(ctx, resp, addr, delay)
		}()
	}
}

func (r *Responder) send(ctx context.Context, resp []byte, addr *net.UDPAddr, delay time.Duration) {
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}

	logging.LogRawBytes("SSDP response", resp)
	if _, err := r.conn.WriteToUDP(resp, addr); err != nil && ctx.Err() == nil {
		logging.Warn("Failed to send SSDP response",
			zap.String("remote_addr", addr.String()),
			zap.Error(err),
		)
	}
}
