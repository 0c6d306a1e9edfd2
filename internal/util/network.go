package util

import (
	"fmt"
	"net"
	"strings"
)

// VPN interfaces are recognised by conventional name prefixes first, then by
// subnet match against configured VPN CIDRs.
var vpnInterfacePrefixes = []string{"wg", "tun", "tap", "vpn", "ppp"}

// ParseCIDRs parses a list of CIDR strings, skipping blanks.
func ParseCIDRs(cidrStrings []string) ([]*net.IPNet, error) {
	var cidrs []*net.IPNet
	for _, cidrStr := range cidrStrings {
		cidrStr = strings.TrimSpace(cidrStr)
		if cidrStr == "" {
			continue
		}
		_, network, err := net.ParseCIDR(cidrStr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", cidrStr, err)
		}
		cidrs = append(cidrs, network)
	}
	return cidrs, nil
}

// IPInCIDRs reports whether ip falls inside any of the given networks.
func IPInCIDRs(ip net.IP, cidrs []*net.IPNet) bool {
	for _, cidr := range cidrs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// LooksLikeVPNInterface applies the interface-name prefix heuristic.
func LooksLikeVPNInterface(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range vpnInterfacePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// InterfaceAddr holds one usable unicast address of a local interface.
type InterfaceAddr struct {
	Name string
	IP   net.IP
}

// EnumerateInterfaceAddrs lists the non-loopback unicast IPv4 addresses of
// all interfaces that are up.
func EnumerateInterfaceAddrs() ([]InterfaceAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("enumerating interfaces: %w", err)
	}

	var out []InterfaceAddr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			out = append(out, InterfaceAddr{Name: iface.Name, IP: ipNet.IP})
		}
	}
	return out, nil
}

// AddrForInterface returns the first usable IPv4 address of the named
// interface, or nil when the interface is absent or down.
func AddrForInterface(name string) net.IP {
	addrs, err := EnumerateInterfaceAddrs()
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		if addr.Name == name {
			return addr.IP
		}
	}
	return nil
}
