// Package dns provides a TTL-aware DNS cache for the transport layer.
//
// Lookups go directly to the system's configured nameservers so record TTLs
// are honored; the stdlib resolver is the fallback when a direct query fails.
package dns

import (
	"context"
	"net"
	"sync"
	"time"

	mdns "github.com/miekg/dns"
)

// Entry represents a cached DNS entry
type Entry struct {
	IPs       []net.IP
	ExpiresAt time.Time
	LookupAt  time.Time
}

// IsExpired checks if the entry has expired
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache provides TTL-aware DNS caching
type Cache struct {
	entries map[string]*Entry
	mu      sync.RWMutex

	servers  []string
	client   *mdns.Client
	resolver *net.Resolver

	defaultTTL time.Duration
	minTTL     time.Duration
	maxTTL     time.Duration

	// lookupFunc overrides the lookup path in tests
	lookupFunc func(ctx context.Context, host string) ([]net.IP, time.Duration, error)
}

// NewCache creates a new DNS cache using the system resolver configuration
func NewCache() *Cache {
	c := &Cache{
		entries:    make(map[string]*Entry),
		client:     &mdns.Client{Timeout: 5 * time.Second},
		resolver:   net.DefaultResolver,
		defaultTTL: 5 * time.Minute,
		minTTL:     30 * time.Second,
		maxTTL:     1 * time.Hour,
	}

	if conf, err := mdns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
		for _, server := range conf.Servers {
			c.servers = append(c.servers, net.JoinHostPort(server, conf.Port))
		}
	}

	return c
}

// Resolve looks up the IP addresses for a hostname.
// Returns cached result if available and not expired; serves stale entries
// when every lookup path fails.
func (c *Cache) Resolve(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}

	c.mu.RLock()
	entry, exists := c.entries[host]
	c.mu.RUnlock()

	if exists && !entry.IsExpired() {
		return entry.IPs, nil
	}

	ips, ttl, err := c.lookup(ctx, host)
	if err != nil {
		if exists {
			return entry.IPs, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.entries[host] = &Entry{
		IPs:       ips,
		ExpiresAt: time.Now().Add(c.clampTTL(ttl)),
		LookupAt:  time.Now(),
	}
	c.mu.Unlock()

	return ips, nil
}

func (c *Cache) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return c.defaultTTL
	}
	if ttl < c.minTTL {
		return c.minTTL
	}
	if ttl > c.maxTTL {
		return c.maxTTL
	}
	return ttl
}

// lookup resolves the host, preferring a direct query so the answer's TTL
// can be kept. Falls back to the stdlib resolver with the default TTL.
func (c *Cache) lookup(ctx context.Context, host string) ([]net.IP, time.Duration, error) {
	if c.lookupFunc != nil {
		return c.lookupFunc(ctx, host)
	}

	if len(c.servers) > 0 {
		if ips, ttl, err := c.query(ctx, host); err == nil && len(ips) > 0 {
			return ips, ttl, nil
		}
	}

	addrs, err := c.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, 0, err
	}
	ips := make([]net.IP, len(addrs))
	for i, addr := range addrs {
		ips[i] = addr.IP
	}
	return ips, c.defaultTTL, nil
}

// query asks the configured nameservers for A and AAAA records directly.
// The returned TTL is the minimum TTL across all answers.
func (c *Cache) query(ctx context.Context, host string) ([]net.IP, time.Duration, error) {
	var ips []net.IP
	minTTL := uint32(0)
	var lastErr error

	for _, qtype := range []uint16{mdns.TypeAAAA, mdns.TypeA} {
		msg := new(mdns.Msg)
		msg.SetQuestion(mdns.Fqdn(host), qtype)
		msg.RecursionDesired = true

		var reply *mdns.Msg
		for _, server := range c.servers {
			in, _, err := c.client.ExchangeContext(ctx, msg, server)
			if err != nil {
				lastErr = err
				continue
			}
			reply = in
			break
		}
		if reply == nil {
			continue
		}

		for _, rr := range reply.Answer {
			var ip net.IP
			switch rec := rr.(type) {
			case *mdns.A:
				ip = rec.A
			case *mdns.AAAA:
				ip = rec.AAAA
			default:
				continue
			}
			ips = append(ips, ip)
			ttl := rr.Header().Ttl
			if minTTL == 0 || ttl < minTTL {
				minTTL = ttl
			}
		}
	}

	if len(ips) == 0 {
		if lastErr != nil {
			return nil, 0, lastErr
		}
		return nil, 0, &net.DNSError{Err: "no addresses found", Name: host}
	}
	return ips, time.Duration(minTTL) * time.Second, nil
}

// ResolveOne returns a single IP address for the hostname.
// Prefers IPv6 over IPv4 (modern browser behavior).
func (c *Cache) ResolveOne(ctx context.Context, host string) (net.IP, error) {
	ips, err := c.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, &net.DNSError{Err: "no addresses found", Name: host}
	}
	for _, ip := range ips {
		if ip.To4() == nil && ip.To16() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}

// Invalidate removes a hostname from the cache
func (c *Cache) Invalidate(host string) {
	c.mu.Lock()
	delete(c.entries, host)
	c.mu.Unlock()
}

// Clear removes all entries from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
}

// Stats returns the number of cached and expired entries
func (c *Cache) Stats() (total int, expired int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	for _, entry := range c.entries {
		total++
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}
	return
}
