package probe

import (
	"errors"
	"fmt"
	"net"
	"syscall"

	log "github.com/sirupsen/logrus"
)

var ErrBlockedAddress = errors.New("destination address is private or reserved")

// DefaultBlockedRanges returns address ranges probes must never connect to.
func DefaultBlockedRanges() []string {
	return []string{
		"0.0.0.0/8",          // "This" Network (RFC 1122)
		"10.0.0.0/8",         // Private-Use Networks (RFC 1918)
		"100.64.0.0/10",      // Shared Address Space (RFC 6598)
		"127.0.0.0/8",        // Loopback (RFC 1122)
		"169.254.0.0/16",     // Link Local (RFC 3927)
		"172.16.0.0/12",      // Private-Use Networks (RFC 1918)
		"192.0.0.0/24",       // IETF Protocol Assignments (RFC 6890)
		"192.0.2.0/24",       // Documentation (TEST-NET-1) (RFC 5737)
		"192.168.0.0/16",     // Private-Use Networks (RFC 1918)
		"198.18.0.0/15",      // Benchmarking (RFC 2544)
		"198.51.100.0/24",    // Documentation (TEST-NET-2) (RFC 5737)
		"203.0.113.0/24",     // Documentation (TEST-NET-3) (RFC 5737)
		"224.0.0.0/4",        // Multicast (RFC 3171)
		"240.0.0.0/4",        // Reserved for Future Use (RFC 1112)
		"255.255.255.255/32", // Limited Broadcast (RFC 0919)
		"::1/128",            // Loopback
		"fc00::/7",           // Unique Local
		"fe80::/10",          // Link Local
	}
}

// Guard rejects dials to blocked networks after DNS resolution.
type Guard struct {
	nets []*net.IPNet
}

func NewGuard(cidrs []string) (*Guard, error) {
	g := &Guard{nets: make([]*net.IPNet, 0, len(cidrs))}
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %s: %w", cidr, err)
		}
		g.nets = append(g.nets, ipNet)
	}
	return g, nil
}

func (g *Guard) Blocked(ip net.IP) bool {
	if ip == nil {
		return true
	}
	for _, n := range g.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Control is suitable for net.Dialer.Control; address is already resolved.
func (g *Guard) Control(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if g.Blocked(net.ParseIP(host)) {
		log.Debugf("Refusing %s dial to %s", network, address)
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	return nil
}
