// Package privacy provides helpers for handling personally identifiable
// information in log output.
package privacy

import (
	"fmt"
	"net/netip"
)

// AnonymizeIP truncates an IP address to remove the host-identifying portion
// before it reaches logs.
//
// IPv4 addresses lose the last octet ("192.168.1.47" -> "192.168.1.0"),
// masking to a /24 network. IPv6 addresses keep only the /48 prefix.
//
// Returns "invalid" for unparseable input and "unknown" for empty strings.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}

	if addr.Is4() || addr.Is4In6() {
		b := addr.As4()
		return fmt.Sprintf("%d.%d.%d.0", b[0], b[1], b[2])
	}

	b := addr.As16()
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		b[0], b[1], b[2], b[3], b[4], b[5])
}
