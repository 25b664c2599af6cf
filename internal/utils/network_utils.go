package utils

import (
	"net"
	"strings"
)

// cgnatBlock is 100.64.0.0/10, used by Cloudflare WARP, Tailscale and carrier NATs.
var cgnatBlock = func() *net.IPNet {
	_, block, _ := net.ParseCIDR("100.64.0.0/10")
	return block
}()

// relayInterfaceHints are name fragments of tunnel adapters that usually break direct P2P.
var relayInterfaceHints = []string{"tun", "tap", "wg", "ppp", "warp"}

// InterfaceInfo is the subset of a network interface ShouldForceRelayFor inspects.
type InterfaceInfo struct {
	Name     string
	Up       bool
	Loopback bool
	Addrs    []net.IP
}

// ShouldForceRelay checks if the system is likely behind a restrictive VPN or CGNAT
// and returns true if we should force TURN usage.
func ShouldForceRelay() bool {
	ifaces, err := localInterfaces()
	if err != nil {
		return false
	}
	return ShouldForceRelayFor(ifaces)
}

// ShouldForceRelayFor applies the relay heuristic to a set of interfaces.
func ShouldForceRelayFor(ifaces []InterfaceInfo) bool {
	for _, iface := range ifaces {
		if !iface.Up || iface.Loopback {
			continue
		}

		name := strings.ToLower(iface.Name)
		for _, hint := range relayInterfaceHints {
			if strings.Contains(name, hint) {
				return true
			}
		}

		for _, ip := range iface.Addrs {
			if cgnatBlock.Contains(ip) {
				return true
			}
		}
	}
	return false
}

func localInterfaces() ([]InterfaceInfo, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]InterfaceInfo, 0, len(interfaces))
	for _, iface := range interfaces {
		info := InterfaceInfo{
			Name:     iface.Name,
			Up:       iface.Flags&net.FlagUp != 0,
			Loopback: iface.Flags&net.FlagLoopback != 0,
		}
		addrs, err := iface.Addrs()
		if err == nil {
			for _, addr := range addrs {
				switch v := addr.(type) {
				case *net.IPNet:
					info.Addrs = append(info.Addrs, v.IP)
				case *net.IPAddr:
					info.Addrs = append(info.Addrs, v.IP)
				}
			}
		}
		out = append(out, info)
	}
	return out, nil
}
