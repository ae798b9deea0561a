package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

var ErrPrivateAddress = errors.New("destination resolves to private/reserved address")

var privateNetworks = mustParseCIDRs(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, network)
	}
	return nets
}

// IsPrivateIP returns true if the IP is in a private, loopback, link-local or reserved range
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// CheckHost resolves host and fails with ErrPrivateAddress if any address is
// private. Loopback is allowed so a dashboard can reach services on its own box.
func CheckHost(ctx context.Context, resolver *net.Resolver, host string) error {
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrPrivateAddress)
	}
	if ip := net.ParseIP(host); ip != nil {
		if IsPrivateIP(ip) && !ip.IsLoopback() {
			return ErrPrivateAddress
		}
		return nil
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("error resolving %s: %w", host, err)
	}
	for _, a := range addrs {
		if IsPrivateIP(a.IP) && !a.IP.IsLoopback() {
			return ErrPrivateAddress
		}
	}
	return nil
}

// CheckURL applies CheckHost to the host of an http(s) URL.
func CheckURL(ctx context.Context, u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return CheckHost(ctx, nil, u.Hostname())
}

// DialControl is a net.Dialer Control hook. It runs after name resolution, so
// it sees the address actually being dialed and refuses private ones.
func DialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrivateAddress, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: unresolved address %q", ErrPrivateAddress, address)
	}
	if IsPrivateIP(ip) && !ip.IsLoopback() {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
	}
	return nil
}

// GuardRedirects wraps a CheckRedirect func so every hop is checked with
// CheckURL before it is followed. A nil next stops after 10 hops like the
// default client.
func GuardRedirects(next func(*http.Request, []*http.Request) error) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if err := CheckURL(req.Context(), req.URL); err != nil {
			return fmt.Errorf("redirect to %s refused: %w", req.URL.Host, err)
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
}

// NewDialer returns a dialer that refuses private destinations.
func NewDialer(timeout time.Duration) *net.Dialer {
	return &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second, Control: DialControl}
}
