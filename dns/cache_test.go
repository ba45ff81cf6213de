package dns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestResolveCachesWithinTTL(t *testing.T) {
	var lookups int
	c := NewCache()
	c.lookupFunc = func(context.Context, string) ([]net.IP, time.Duration, error) {
		lookups++
		return []net.IP{net.ParseIP("192.0.2.1")}, 5 * time.Minute, nil
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ips, err := c.Resolve(ctx, "service.example")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(ips) != 1 || !ips[0].Equal(net.ParseIP("192.0.2.1")) {
			t.Errorf("unexpected ips: %v", ips)
		}
	}
	if lookups != 1 {
		t.Errorf("lookups = %d, want 1 (cache within TTL)", lookups)
	}
}

func TestResolveServesStaleOnError(t *testing.T) {
	calls := 0
	c := NewCache()
	c.lookupFunc = func(context.Context, string) ([]net.IP, time.Duration, error) {
		calls++
		if calls == 1 {
			return []net.IP{net.ParseIP("192.0.2.7")}, time.Nanosecond, nil
		}
		return nil, 0, errors.New("nameserver down")
	}

	ctx := context.Background()
	if _, err := c.Resolve(ctx, "service.example"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	// Entry clamped to minTTL; force expiry.
	c.mu.Lock()
	c.entries["service.example"].ExpiresAt = time.Now().Add(-time.Second)
	c.mu.Unlock()

	ips, err := c.Resolve(ctx, "service.example")
	if err != nil {
		t.Fatalf("stale Resolve should succeed: %v", err)
	}
	if !ips[0].Equal(net.ParseIP("192.0.2.7")) {
		t.Errorf("stale entry not served: %v", ips)
	}
}

func TestResolveFailsWithoutCache(t *testing.T) {
	c := NewCache()
	c.lookupFunc = func(context.Context, string) ([]net.IP, time.Duration, error) {
		return nil, 0, errors.New("nameserver down")
	}

	if _, err := c.Resolve(context.Background(), "service.example"); err == nil {
		t.Fatal("expected lookup error")
	}
}

func TestResolveLiteralIP(t *testing.T) {
	c := NewCache()
	c.lookupFunc = func(context.Context, string) ([]net.IP, time.Duration, error) {
		t.Fatal("literal IPs must not trigger a lookup")
		return nil, 0, nil
	}

	ips, err := c.Resolve(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ips) != 1 || ips[0].String() != "127.0.0.1" {
		t.Errorf("ips = %v", ips)
	}
}

func TestResolveOnePrefersIPv6(t *testing.T) {
	c := NewCache()
	c.lookupFunc = func(context.Context, string) ([]net.IP, time.Duration, error) {
		return []net.IP{
			net.ParseIP("192.0.2.1"),
			net.ParseIP("2001:db8::1"),
		}, time.Minute, nil
	}

	ip, err := c.ResolveOne(context.Background(), "service.example")
	if err != nil {
		t.Fatalf("ResolveOne: %v", err)
	}
	if ip.String() != "2001:db8::1" {
		t.Errorf("ResolveOne = %v, want the IPv6 address", ip)
	}
}

func TestClampTTL(t *testing.T) {
	c := NewCache()
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, c.defaultTTL},
		{time.Second, c.minTTL},
		{2 * time.Hour, c.maxTTL},
		{10 * time.Minute, 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := c.clampTTL(tt.in); got != tt.want {
			t.Errorf("clampTTL(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInvalidateAndStats(t *testing.T) {
	c := NewCache()
	c.lookupFunc = func(context.Context, string) ([]net.IP, time.Duration, error) {
		return []net.IP{net.ParseIP("192.0.2.1")}, time.Minute, nil
	}

	if _, err := c.Resolve(context.Background(), "service.example"); err != nil {
		t.Fatal(err)
	}
	if total, _ := c.Stats(); total != 1 {
		t.Errorf("Stats total = %d", total)
	}

	c.Invalidate("service.example")
	if total, _ := c.Stats(); total != 0 {
		t.Errorf("Stats total after Invalidate = %d", total)
	}
}
