package http

import (
	"fmt"
	"net"
)

// dashboardURL renders the address users should open. A bind address
// of 0.0.0.0 is useless in a browser, so substitute the LAN IP.
func dashboardURL(host string, port int) string {
	ip := net.ParseIP(host)
	if host == "" || (ip != nil && ip.IsUnspecified()) {
		if lan := preferredHostIP(); lan != "" {
			host = lan
		} else {
			host = "127.0.0.1"
		}
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// preferredHostIP picks the IPv4 address a browser on the LAN would
// reach, favoring home-router subnets over other private ranges.
func preferredHostIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	var best net.IP
	bestScore := -1
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch a := addr.(type) {
			case *net.IPNet:
				ip = a.IP
			case *net.IPAddr:
				ip = a.IP
			default:
				continue
			}
			ip = ip.To4()
			if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
			if score := hostIPScore(ip); score > bestScore {
				best = ip
				bestScore = score
			}
		}
	}

	if best == nil {
		return ""
	}
	return best.String()
}

// hostIPScore ranks candidate addresses: common home subnets first,
// then any private range, then whatever is left.
func hostIPScore(ip net.IP) int {
	switch {
	case ip[0] == 192 && ip[1] == 168 && ip[2] == 1:
		return 3
	case ip[0] == 192 && ip[1] == 168:
		return 2
	case ip[0] == 10:
		return 1
	case ip[0] == 172 && ip[1] >= 16 && ip[1] <= 31:
		return 1
	}
	return 0
}
