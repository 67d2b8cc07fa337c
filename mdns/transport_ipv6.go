package mdns

import (
	"net"

	"github.com/collight/dns-sd/dnssd"
	"github.com/miekg/dns"
	"golang.org/x/net/ipv6"
)

// ipv6Conn is the IPv6 counterpart of ipv4Conn.
type ipv6Conn struct {
	conn      *net.UDPConn
	pconn     *ipv6.PacketConn
	groupAddr *net.UDPAddr
	logger    Logger
}

func listenIPv6(ifaces []net.Interface, port int, groupIP net.IP, multicast bool, logger Logger) (*ipv6Conn, error) {
	if !multicast {
		loopback := &net.UDPAddr{IP: net.IPv6loopback, Port: port}
		conn, err := net.ListenUDP("udp6", loopback)
		if err != nil {
			return nil, err
		}
		return &ipv6Conn{conn: conn, groupAddr: loopback, logger: logger}, nil
	}

	conn, err := net.ListenUDP("udp6", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}

	pconn := ipv6.NewPacketConn(conn)
	pconn.SetControlMessage(ipv6.FlagInterface, true)

	groupAddr := &net.UDPAddr{IP: groupIP, Port: port}

	joined := 0
	for _, iface := range ifaces {
		if err := pconn.JoinGroup(&iface, groupAddr); err != nil {
			logger.Printf("mdns: ipv6: failed to join %s on %s: %v", groupIP, iface.Name, err)
			continue
		}
		joined++
	}

	if joined == 0 {
		conn.Close()
		return nil, errNoUsableInterfaces
	}

	return &ipv6Conn{conn: conn, pconn: pconn, groupAddr: groupAddr, logger: logger}, nil
}

func (c *ipv6Conn) readLoop(handle func(*dns.Msg, dnssd.RemoteInfo)) {
	buf := getBuffer()
	defer putBuffer(buf)

	for {
		n, src, err := c.readFrom(buf)
		if err != nil {
			return
		}

		msg := new(dns.Msg)
		if err := msg.Unpack(buf[:n]); err != nil {
			c.logger.Printf("mdns: ipv6: failed to unpack packet from %s: %v", src, err)
			continue
		}

		udpAddr, _ := src.(*net.UDPAddr)
		info := dnssd.RemoteInfo{Family: "IPv6", Size: n}
		if udpAddr != nil {
			info.Address = udpAddr.IP.String()
			info.Port = udpAddr.Port
		}

		handle(msg, info)
	}
}

func (c *ipv6Conn) readFrom(buf []byte) (int, net.Addr, error) {
	if c.pconn != nil {
		n, _, src, err := c.pconn.ReadFrom(buf)
		return n, src, err
	}
	return c.conn.ReadFromUDP(buf)
}

func (c *ipv6Conn) write(msg *dns.Msg) error {
	packed, err := msg.Pack()
	if err != nil {
		return err
	}

	if c.pconn != nil {
		_, err = c.pconn.WriteTo(packed, nil, c.groupAddr)
		return err
	}

	_, err = c.conn.WriteToUDP(packed, c.groupAddr)
	return err
}

func (c *ipv6Conn) close() error {
	return c.conn.Close()
}
