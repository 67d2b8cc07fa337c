package mdns

import (
	"net"
	"os"
	"strings"

	"github.com/collight/dns-sd/dnssd"
)

// HostProvider is the [dnssd.HostProvider] used by default: it derives the
// mDNS hostname from the operating system's hostname, and the advertised
// addresses from every multicast-capable network interface.
type HostProvider struct{}

// Hostname returns the operating system's hostname with a ".local" suffix,
// per https://www.rfc-editor.org/rfc/rfc6762#section-3.
func (HostProvider) Hostname() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", err
	}

	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}

	return name + ".local", nil
}

// Addresses returns one [dnssd.InterfaceAddress] per non-loopback address
// bound to a multicast-capable interface whose hardware address is not all
// zeros. Interfaces with no hardware address at all are included.
//
// Interfaces with an all-zero hardware address are typically virtual
// (tunnels, VPN adapters) and are excluded, since advertising them tends to
// confuse mDNS resolvers on the physical network.
func (HostProvider) Addresses() ([]dnssd.InterfaceAddress, error) {
	ifaces, err := multicastInterfaces()
	if err != nil {
		return nil, err
	}

	var addrs []dnssd.InterfaceAddress

	for _, iface := range ifaces {
		if isZeroHardwareAddr(iface.HardwareAddr) {
			continue
		}

		ifaceAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, a := range ifaceAddrs {
			ip := addrIP(a)
			if ip == nil || ip.IsLoopback() {
				continue
			}

			addrs = append(addrs, dnssd.InterfaceAddress{Address: ip})
		}
	}

	return addrs, nil
}

func addrIP(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		return nil
	}
}

func isZeroHardwareAddr(mac net.HardwareAddr) bool {
	if len(mac) == 0 {
		return false
	}

	for _, b := range mac {
		if b != 0 {
			return false
		}
	}

	return true
}
