package fetcher

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"syscall"
)

var internalHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"0.0.0.0":   {},
	"[::1]":     {},
}

// The 172. prefix covers all of 172.0.0.0/8, not only 172.16.0.0/12.
// Public hosts such as 172.200.1.1 are rejected as well.
var internalPrefixes = []string{
	"192.168.",
	"10.",
	"172.",
}

// IsInternalHost applies the literal hostname filter to a canonical host. No
// DNS resolution is performed, so rebinding and IPv4-mapped IPv6 literals are
// not detected here; see the strict dialer for that.
func IsInternalHost(hostname string) bool {
	if _, ok := internalHosts[hostname]; ok {
		return true
	}
	for _, prefix := range internalPrefixes {
		if strings.HasPrefix(hostname, prefix) {
			return true
		}
	}
	return false
}

// ParseTarget runs the URL part of the validation pipeline: absolute URL,
// http(s) scheme, literal internal host filter.
func ParseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return nil, ErrInvalidURL
	}

	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return nil, ErrInvalidURL
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrUnsupportedScheme
	}

	host, err := hostname(u)
	if err != nil {
		return nil, err
	}
	if IsInternalHost(host) {
		return nil, ErrInternalAddress
	}

	return u, nil
}

// hostname returns the canonical host of u and rewrites u.Host to it. Names
// are lowercased, IPv6 literals are compressed and kept in brackets, and
// numeric IPv4 forms such as 127.1, 0x7f.0.0.1 or 2130706433 become
// dotted quads.
func hostname(u *url.URL) (string, error) {
	host := strings.ToLower(u.Hostname())

	switch {
	case strings.Contains(host, ":"):
		addr, err := netip.ParseAddr(host)
		if err != nil {
			return "", ErrInvalidURL
		}
		host = "[" + addr.String() + "]"
	default:
		addr, ok, err := parseIPv4(host)
		if err != nil {
			return "", err
		}
		if ok {
			host = addr.String()
		}
	}

	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	return host, nil
}

// parseIPv4 parses host the way browsers do: one to four dot separated parts,
// each decimal, 0x hex or 0 octal, the last part filling the remaining bytes.
// ok is false when host is a domain name.
func parseIPv4(host string) (netip.Addr, bool, error) {
	parts := strings.Split(host, ".")
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 || len(parts) > 4 {
		return netip.Addr{}, false, nil
	}

	nums := make([]uint64, len(parts))
	for i, part := range parts {
		n, ok := parseIPv4Part(part)
		if !ok {
			return netip.Addr{}, false, nil
		}
		nums[i] = n
	}

	last := nums[len(nums)-1]
	if last >= 1<<(8*(5-len(nums))) {
		return netip.Addr{}, false, ErrInvalidURL
	}

	var ip uint64
	for i, n := range nums[:len(nums)-1] {
		if n > 255 {
			return netip.Addr{}, false, ErrInvalidURL
		}
		ip |= n << (8 * (3 - i))
	}
	ip |= last

	return netip.AddrFrom4([4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}), true, nil
}

func parseIPv4Part(part string) (uint64, bool) {
	if part == "" {
		return 0, false
	}

	base := 10
	switch {
	case strings.HasPrefix(part, "0x"):
		part = part[2:]
		base = 16
		if part == "" {
			return 0, true
		}
	case len(part) > 1 && part[0] == '0':
		part = part[1:]
		base = 8
	}

	n, err := strconv.ParseUint(part, base, 64)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxUint64, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsInternalAddr reports whether a resolved address must never be dialed in
// strict mode.
func IsInternalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsUnspecified()
}

// strictControl rejects sockets to internal addresses after DNS resolution,
// which also covers redirects and rebinding.
func strictControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("split dial address %q: %w", address, err)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("parse dial address %q: %w", host, err)
	}

	if IsInternalAddr(addr) {
		return ErrInternalAddress
	}

	return nil
}
