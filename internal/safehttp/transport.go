// Package safehttp provides an outbound HTTP client for fetching
// operator-configured upstream URLs. Its dialer refuses private,
// loopback, and link-local destinations so a mistyped or redirected
// target cannot reach internal services.
package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// dialTimeout bounds each connection attempt separately from the
// caller's overall request timeout.
const dialTimeout = 5 * time.Second

// guardedDial resolves addr and dials the first resolved address,
// rejecting any candidate in private address space. Every resolved
// address is checked, so a DNS answer mixing public and private
// records is refused outright, and the dial is pinned to a checked IP.
func guardedDial(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("split host port %q: %w", addr, err)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}

	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
			ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return nil, fmt.Errorf("access to private IP %s is denied", ip)
		}
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}

// Transport rejects connections into private address space.
var Transport http.RoundTripper = &http.Transport{
	DialContext: guardedDial,
}

// Client returns an outbound client on Transport with an overall
// request timeout.
func Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: Transport, Timeout: timeout}
}
