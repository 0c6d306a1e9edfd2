package netroute

import (
	"net"

	"github.com/vidra-project/vidra/internal/config"
	"github.com/vidra-project/vidra/internal/util"
)

// InterfaceKind labels a local interface as the VPN leg or the direct leg of
// the split tunnel.
type InterfaceKind string

const (
	InterfaceVPN     InterfaceKind = "vpn"
	InterfaceDirect  InterfaceKind = "direct"
	InterfaceDefault InterfaceKind = "default"
)

// interfaceInventory is the result of one local-interface scan.
type interfaceInventory struct {
	vpnAddr    net.IP
	vpnName    string
	directAddr net.IP
	directName string
}

// detectInterfaces enumerates local addresses and classifies them. Explicit
// names from config win; otherwise the wg/tun/vpn name prefix heuristic and
// the configured VPN subnets decide.
func detectInterfaces(cfg *config.NetworkConfig) (*interfaceInventory, error) {
	addrs, err := util.EnumerateInterfaceAddrs()
	if err != nil {
		return nil, err
	}

	vpnSubnets, err := util.ParseCIDRs(cfg.VPNSubnets)
	if err != nil {
		return nil, err
	}

	inv := &interfaceInventory{}
	for _, addr := range addrs {
		isVPN := false
		switch {
		case cfg.VPNInterface != "" && addr.Name == cfg.VPNInterface:
			isVPN = true
		case cfg.DefaultInterface != "" && addr.Name == cfg.DefaultInterface:
			isVPN = false
		case util.LooksLikeVPNInterface(addr.Name):
			isVPN = true
		case util.IPInCIDRs(addr.IP, vpnSubnets):
			isVPN = true
		}

		if isVPN {
			if inv.vpnAddr == nil {
				inv.vpnAddr = addr.IP
				inv.vpnName = addr.Name
			}
		} else if inv.directAddr == nil {
			inv.directAddr = addr.IP
			inv.directName = addr.Name
		}
	}

	return inv, nil
}

// kindForService resolves which tunnel leg a service should use under the
// configured strategy.
func kindForService(cfg *config.NetworkConfig, service ServiceType) InterfaceKind {
	switch cfg.Strategy {
	case "vpn_only":
		return InterfaceVPN
	case "direct_only":
		return InterfaceDirect
	case "split_tunnel", "auto":
		if cfg.ServiceVPN[string(service)] {
			return InterfaceVPN
		}
		return InterfaceDefault
	default:
		return InterfaceDefault
	}
}
