package ssdp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/neuhausf/fauxmo/internal/logging"
	"go.uber.org/zap"
)

// Result is one reply to an M-SEARCH.
type Result struct {
	From     string // responder address
	Location string
	ST       string
	USN      string
	Server   string
}

// SearchOptions configures Search.
type SearchOptions struct {
	Target string        // defaults to urn:Belkin:device:**
	MX     int           // defaults to 2
	Wait   time.Duration // how long to collect replies; defaults to MX+1 seconds
	Dest   string        // defaults to the SSDP multicast group
}

// Search multicasts an M-SEARCH and collects replies until opts.Wait
// elapses or ctx is canceled. Replies are deduplicated by USN.
func Search(ctx context.Context, opts SearchOptions) ([]Result, error) {
	if opts.Target == "" {
		opts.Target = TargetBelkinDevices
	}
	if opts.MX <= 0 {
		opts.MX = 2
	}
	if opts.Wait <= 0 {
		opts.Wait = time.Duration(opts.MX+1) * time.Second
	}
	if opts.Dest == "" {
		opts.Dest = net.JoinHostPort(MulticastAddr, strconv.Itoa(Port))
	}

	dest, err := net.ResolveUDPAddr("udp4", opts.Dest)
	if err != nil {
		return nil, fmt.Errorf("invalid search destination %q: %w", opts.Dest, err)
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket: %w", err)
	}
	defer conn.Close()

	req := strings.Join([]string{
		"M-SEARCH * HTTP/1.1",
		"HOST: " + net.JoinHostPort(MulticastAddr, strconv.Itoa(Port)),
		`MAN: "ssdp:discover"`,
		"MX: " + strconv.Itoa(opts.MX),
		"ST: " + opts.Target,
		"", "",
	}, "\r\n")
	if _, err := conn.WriteToUDP([]byte(req), dest); err != nil {
		return nil, fmt.Errorf("failed to send M-SEARCH: %w", err)
	}
	logging.Debug("M-SEARCH sent", zap.String("dest", dest.String()), zap.String("st", opts.Target))

	deadline := time.Now().Add(opts.Wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	seen := make(map[string]bool)
	var results []Result
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return results, nil
			}
			return results, fmt.Errorf("failed to read reply: %w", err)
		}

		r, err := parseReply(buf[:n])
		if err != nil {
			logging.Debug("Ignoring SSDP reply", zap.String("from", from.String()), zap.Error(err))
			continue
		}
		r.From = from.String()

		key := r.USN
		if key == "" {
			key = r.Location
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		results = append(results, r)
	}
}

func parseReply(data []byte) (Result, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	location := resp.Header.Get("LOCATION")
	if location == "" {
		return Result{}, errors.New("no LOCATION header")
	}
	return Result{
		Location: location,
		ST:       resp.Header.Get("ST"),
		USN:      resp.Header.Get("USN"),
		Server:   resp.Header.Get("SERVER"),
	}, nil
}
