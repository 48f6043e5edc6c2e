package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

var (
	errInvalidURLScheme = errors.New("unsupported url scheme")
	errBlockedURLHost   = errors.New("blocked url host")
	errBlockedURLPort   = errors.New("blocked url port")
)

// validatePageURL rejects anything but public http(s) hosts on default ports.
func validatePageURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	if parsed.Host == "" {
		return nil, errors.New("url host is required")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errInvalidURLScheme
	}
	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return nil, errors.New("url hostname is required")
	}
	if blockedHostname(hostname) {
		return nil, errBlockedURLHost
	}
	if !allowedPort(parsed.Port()) {
		return nil, errBlockedURLPort
	}
	return parsed, nil
}

func allowedPort(rawPort string) bool {
	if rawPort == "" {
		return true
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return false
	}
	return port == 80 || port == 443
}

func blockedHostname(hostname string) bool {
	switch {
	case hostname == "localhost", strings.HasSuffix(hostname, ".localhost"):
		return true
	case strings.HasSuffix(hostname, ".local"), strings.HasSuffix(hostname, ".internal"):
		return true
	}
	if ip, err := netip.ParseAddr(hostname); err == nil {
		return privateAddr(ip)
	}
	return false
}

func privateAddr(ip netip.Addr) bool {
	if !ip.IsValid() {
		return true
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsInterfaceLocalMulticast() {
		return true
	}
	return false
}

// guardedDialContext resolves the host itself so a public name cannot
// point the fetch at an internal address.
func guardedDialContext(base *net.Dialer) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, err
		}
		if blockedHostname(strings.ToLower(host)) {
			return nil, errBlockedURLHost
		}

		addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("no ip addresses for host %q", host)
		}
		for _, addr := range addrs {
			if privateAddr(addr) {
				return nil, errBlockedURLHost
			}
		}
		return base.DialContext(ctx, network, net.JoinHostPort(addrs[0].String(), port))
	}
}
