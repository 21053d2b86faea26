package v1

import (
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// getClientIP extracts the visitor's public IP, preferring reverse-proxy
// headers over the socket address. Private and loopback addresses are skipped
// so country resolution does not run against proxy hops.
func getClientIP(c *fiber.Ctx) string {
	if ip := firstPublicIP(strings.Split(c.Get("X-Forwarded-For"), ",")); ip != "" {
		return ip
	}

	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP", "True-Client-IP"} {
		if ip := firstPublicIP([]string{c.Get(header)}); ip != "" {
			return ip
		}
	}

	if ip := firstPublicIP([]string{c.Context().RemoteAddr().String()}); ip != "" {
		return ip
	}

	return c.IP()
}

// firstPublicIP returns the first routable address among the candidates,
// preferring IPv4 over IPv6.
func firstPublicIP(candidates []string) string {
	var ipv6Fallback string

	for _, raw := range candidates {
		addr, ok := parseAddr(raw)
		if !ok {
			continue
		}
		if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
			continue
		}

		if addr.Is4() {
			return addr.String()
		}
		if ipv6Fallback == "" {
			ipv6Fallback = addr.String()
		}
	}

	return ipv6Fallback
}

func parseAddr(raw string) (netip.Addr, bool) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"")
	if clean == "" {
		return netip.Addr{}, false
	}

	// Drop a zone identifier if present (fe80::1%eth0)
	if percent := strings.Index(clean, "%"); percent != -1 {
		clean = clean[:percent]
	}

	if addrPort, err := netip.ParseAddrPort(clean); err == nil {
		return addrPort.Addr().Unmap(), true
	}

	clean = strings.TrimSuffix(strings.TrimPrefix(clean, "["), "]")
	if addr, err := netip.ParseAddr(clean); err == nil {
		return addr.Unmap(), true
	}

	return netip.Addr{}, false
}
