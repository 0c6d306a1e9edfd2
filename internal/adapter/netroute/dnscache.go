package netroute

import (
	"context"
	"net"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// resolverCache memoises DNS lookups across all pooled sessions. Backends
// here resolve to the same small address sets for minutes at a time, so a
// shared TTL cache removes most lookup latency from the fan-out path.
type resolverCache struct {
	entries  *xsync.Map[string, *resolverEntry]
	resolver *net.Resolver
	ttl      time.Duration
}

type resolverEntry struct {
	addrs   []string
	expires time.Time
}

func newResolverCache(ttl time.Duration) *resolverCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &resolverCache{
		entries:  xsync.NewMap[string, *resolverEntry](),
		resolver: net.DefaultResolver,
		ttl:      ttl,
	}
}

// Lookup returns cached addresses for host, refreshing on expiry. Expired
// entries are served stale if the refresh fails, which keeps a flaky DNS
// server from taking every platform down at once.
func (rc *resolverCache) Lookup(ctx context.Context, host string) ([]string, error) {
	now := time.Now()
	if entry, ok := rc.entries.Load(host); ok && now.Before(entry.expires) {
		return entry.addrs, nil
	}

	addrs, err := rc.resolver.LookupHost(ctx, host)
	if err != nil {
		if entry, ok := rc.entries.Load(host); ok {
			return entry.addrs, nil
		}
		return nil, err
	}

	rc.entries.Store(host, &resolverEntry{
		addrs:   addrs,
		expires: now.Add(rc.ttl),
	})
	return addrs, nil
}

// DialContext resolves through the cache and dials the first reachable
// address.
func (rc *resolverCache) DialContext(ctx context.Context, dialer *net.Dialer, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return dialer.DialContext(ctx, network, address)
	}

	// Literal IPs skip the cache.
	if net.ParseIP(host) != nil {
		return dialer.DialContext(ctx, network, address)
	}

	addrs, err := rc.Lookup(ctx, host)
	if err != nil || len(addrs) == 0 {
		return dialer.DialContext(ctx, network, address)
	}

	var lastErr error
	for _, addr := range addrs {
		conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(addr, port))
		if dialErr == nil {
			return conn, nil
		}
		lastErr = dialErr
	}
	return nil, lastErr
}

// dialVia adapts the cache to http.Transport.DialContext with a fixed
// underlying dialer.
func (rc *resolverCache) dialVia(dialer *net.Dialer) func(ctx context.Context, network, address string) (net.Conn, error) {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		return rc.DialContext(ctx, dialer, network, address)
	}
}

func (rc *resolverCache) Size() int {
	return rc.entries.Size()
}
