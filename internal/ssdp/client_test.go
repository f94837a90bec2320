package ssdp

import (
	"context"
	"testing"
	"time"
)

func TestSearchFindsResponderDevices(t *testing.T) {
	r := NewResponder(Config{Addr: "127.0.0.1:0", DisableMulticast: true})
	r.AddDevice("lamp", "127.0.0.1", 12340)
	r.AddDevice("fan", "127.0.0.1", 12341)
	addr := startResponder(t, r)

	results, err := Search(context.Background(), SearchOptions{
		MX:   1,
		Wait: 1500 * time.Millisecond,
		Dest: addr.String(),
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	for _, res := range results {
		if res.ST != TargetBelkinDevices {
			t.Errorf("ST = %q", res.ST)
		}
		if res.Server != "Unspecified, UPnP/1.0, Unspecified" {
			t.Errorf("Server = %q", res.Server)
		}
	}
}

func TestSearchCanceled(t *testing.T) {
	r := NewResponder(Config{Addr: "127.0.0.1:0", DisableMulticast: true})
	addr := startResponder(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	results, err := Search(ctx, SearchOptions{Wait: 5 * time.Second, Dest: addr.String()})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() = %v, want none", results)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Search() ignored context deadline")
	}
}

func TestParseReplyRejects(t *testing.T) {
	for _, data := range []string{
		"not http",
		"HTTP/1.1 404 Not Found\r\nLOCATION: http://x/\r\n\r\n",
		"HTTP/1.1 200 OK\r\nST: ssdp:all\r\n\r\n",
	} {
		if _, err := parseReply([]byte(data)); err == nil {
			t.Errorf("parseReply(%q) should fail", data)
		}
	}
}
