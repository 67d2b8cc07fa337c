package mdns

import (
	"errors"
	"net"
	"sync"

	"github.com/collight/dns-sd/dnssd"
	"github.com/miekg/dns"
)

// errNoUsableInterfaces is returned when neither address family managed to
// join the mDNS group on any interface.
var errNoUsableInterfaces = errors.New("mdns: no usable multicast interfaces")

// Endpoint is the real [dnssd.Transport]: a pair of IPv4 and IPv6 multicast
// UDP sockets, one joined to 224.0.0.251:5353, the other to
// [ff02::fb]:5353, on every multicast-capable interface.
//
// It implements [dnssd.Transport]. Callers that only have IPv4 or only have
// IPv6 connectivity still get a working Endpoint; only the families whose
// socket fails to listen (for example, the kernel's IPv6 stack is
// disabled) are skipped, so long as at least one joined successfully.
type Endpoint struct {
	v4 *ipv4Conn
	v6 *ipv6Conn

	logger Logger

	queries   chan *dns.Msg
	responses chan dnssd.InboundResponse

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// EndpointOption configures an [Endpoint] returned by [NewEndpoint].
type EndpointOption func(*endpointConfig)

type endpointConfig struct {
	logger    Logger
	port      int
	groupV4   net.IP
	groupV6   net.IP
	multicast bool
}

// WithLogger sets the logger an Endpoint reports socket errors to. The
// default is a logger that discards everything.
func WithLogger(logger Logger) EndpointOption {
	return func(c *endpointConfig) { c.logger = logger }
}

// WithPort overrides the UDP port used for both address families. The
// default is 5353.
func WithPort(port int) EndpointOption {
	return func(c *endpointConfig) { c.port = port }
}

// WithGroupAddress overrides the multicast group address joined for ip's
// address family (IPv4 or IPv6); the other family keeps its default. It
// has no effect when combined with [WithoutMulticast].
func WithGroupAddress(ip net.IP) EndpointOption {
	return func(c *endpointConfig) {
		if v4 := ip.To4(); v4 != nil {
			c.groupV4 = v4
		} else {
			c.groupV6 = ip
		}
	}
}

// WithoutMulticast disables multicast, binding plain loopback UDP sockets
// instead of joining the mDNS groups. This is for hermetic tests that
// cannot join a multicast group in their network namespace.
func WithoutMulticast() EndpointOption {
	return func(c *endpointConfig) { c.multicast = false }
}

// NewEndpoint opens IPv4 and IPv6 sockets and returns an [Endpoint] ready
// to use as a [dnssd.Transport]. By default both sockets join the
// well-known mDNS multicast groups on every multicast-capable network
// interface; see [WithoutMulticast] for a unicast loopback alternative.
//
// It fails if the network interfaces cannot be listed (in multicast mode),
// or if neither address family could be set up at all.
func NewEndpoint(options ...EndpointOption) (*Endpoint, error) {
	cfg := endpointConfig{
		logger:    nopLogger{},
		port:      Port,
		groupV4:   IPv4Group,
		groupV6:   IPv6Group,
		multicast: true,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	var ifaces []net.Interface
	if cfg.multicast {
		var err error
		ifaces, err = multicastInterfaces()
		if err != nil {
			return nil, err
		}
	}

	v4, errV4 := listenIPv4(ifaces, cfg.port, cfg.groupV4, cfg.multicast, cfg.logger)
	v6, errV6 := listenIPv6(ifaces, cfg.port, cfg.groupV6, cfg.multicast, cfg.logger)

	if v4 == nil && v6 == nil {
		if errV4 != nil {
			return nil, errV4
		}
		return nil, errV6
	}

	e := &Endpoint{
		v4:        v4,
		v6:        v6,
		logger:    cfg.logger,
		queries:   make(chan *dns.Msg, 64),
		responses: make(chan dnssd.InboundResponse, 64),
	}

	if v4 != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			v4.readLoop(e.handleInbound)
		}()
	}

	if v6 != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			v6.readLoop(e.handleInbound)
		}()
	}

	return e, nil
}

func (e *Endpoint) handleInbound(msg *dns.Msg, referer dnssd.RemoteInfo) {
	if msg.Response {
		e.responses <- dnssd.InboundResponse{Packet: msg, Referer: referer}
		return
	}

	e.queries <- msg
}

// Query sends a single question of type qtype for name.
func (e *Endpoint) Query(name string, qtype uint16) error {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.Response = false
	msg.RecursionDesired = false

	return e.writeToAll(msg)
}

// Respond sends res as an unsolicited multicast response.
func (e *Endpoint) Respond(res *dnssd.Response, cb func(error)) {
	msg := new(dns.Msg)
	msg.Response = true
	msg.Authoritative = true
	msg.Answer = res.Answers
	msg.Extra = res.Additionals

	go cb(e.writeToAll(msg))
}

func (e *Endpoint) writeToAll(msg *dns.Msg) error {
	var errs []error

	if e.v4 != nil {
		if err := e.v4.write(msg); err != nil {
			e.logger.Printf("mdns: ipv4: write failed: %v", err)
			errs = append(errs, err)
		}
	}

	if e.v6 != nil {
		if err := e.v6.write(msg); err != nil {
			e.logger.Printf("mdns: ipv6: write failed: %v", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Queries returns the channel on which inbound queries are delivered.
func (e *Endpoint) Queries() <-chan *dns.Msg { return e.queries }

// Responses returns the channel on which inbound responses are delivered.
func (e *Endpoint) Responses() <-chan dnssd.InboundResponse { return e.responses }

// Close closes both sockets and waits for their read loops to exit.
func (e *Endpoint) Close() error {
	var err error

	e.closeOnce.Do(func() {
		if e.v4 != nil {
			err = errors.Join(err, e.v4.close())
		}
		if e.v6 != nil {
			err = errors.Join(err, e.v6.close())
		}

		e.wg.Wait()
		close(e.queries)
		close(e.responses)
	})

	return err
}
