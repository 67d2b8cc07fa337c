package mdns

import (
	"net"

	"github.com/collight/dns-sd/dnssd"
	"github.com/miekg/dns"
	"golang.org/x/net/ipv4"
)

// ipv4Conn owns one IPv4 UDP socket. In multicast mode it is joined to the
// mDNS group on every multicast-capable interface; in unicast mode
// ([WithoutMulticast]) it is a plain loopback socket, for hermetic tests
// that cannot join a multicast group.
//
// This completes the draft the teacher had left mostly commented out:
// Listen and Group were working, but Read and Write were stubbed pending a
// buffer pool and logger, both of which now exist alongside it.
type ipv4Conn struct {
	conn      *net.UDPConn
	pconn     *ipv4.PacketConn
	groupAddr *net.UDPAddr
	logger    Logger
}

func listenIPv4(ifaces []net.Interface, port int, groupIP net.IP, multicast bool, logger Logger) (*ipv4Conn, error) {
	if !multicast {
		loopback := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
		conn, err := net.ListenUDP("udp4", loopback)
		if err != nil {
			return nil, err
		}
		return &ipv4Conn{conn: conn, groupAddr: loopback, logger: logger}, nil
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}

	pconn := ipv4.NewPacketConn(conn)
	pconn.SetControlMessage(ipv4.FlagInterface, true)

	groupAddr := &net.UDPAddr{IP: groupIP, Port: port}

	joined := 0
	for _, iface := range ifaces {
		if err := pconn.JoinGroup(&iface, groupAddr); err != nil {
			logger.Printf("mdns: ipv4: failed to join %s on %s: %v", groupIP, iface.Name, err)
			continue
		}
		joined++
	}

	if joined == 0 {
		conn.Close()
		return nil, errNoUsableInterfaces
	}

	return &ipv4Conn{conn: conn, pconn: pconn, groupAddr: groupAddr, logger: logger}, nil
}

func (c *ipv4Conn) readLoop(handle func(*dns.Msg, dnssd.RemoteInfo)) {
	buf := getBuffer()
	defer putBuffer(buf)

	for {
		n, src, err := c.readFrom(buf)
		if err != nil {
			return
		}

		msg := new(dns.Msg)
		if err := msg.Unpack(buf[:n]); err != nil {
			c.logger.Printf("mdns: ipv4: failed to unpack packet from %s: %v", src, err)
			continue
		}

		udpAddr, _ := src.(*net.UDPAddr)
		info := dnssd.RemoteInfo{Family: "IPv4", Size: n}
		if udpAddr != nil {
			info.Address = udpAddr.IP.String()
			info.Port = udpAddr.Port
		}

		handle(msg, info)
	}
}

func (c *ipv4Conn) readFrom(buf []byte) (int, net.Addr, error) {
	if c.pconn != nil {
		n, _, src, err := c.pconn.ReadFrom(buf)
		return n, src, err
	}
	return c.conn.ReadFromUDP(buf)
}

func (c *ipv4Conn) write(msg *dns.Msg) error {
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

func (c *ipv4Conn) close() error {
	return c.conn.Close()
}
