package dnssd

import (
	"context"
	"net"
	"sync"
)

// InterfaceAddress is one address reported by a [HostProvider].
type InterfaceAddress struct {
	Address net.IP
}

// HostProvider is the external collaborator that tells this package about
// the machine it runs on: its mDNS hostname and the addresses its service
// records should advertise.
//
// Concrete implementations, such as the one in the sibling mdns package,
// derive these from the operating system's network interfaces.
type HostProvider interface {
	// Hostname returns the mDNS hostname of the local machine, such as
	// "host.local".
	Hostname() (string, error)

	// Addresses returns the set of addresses that should be advertised
	// for the local machine's hostname.
	Addresses() ([]InterfaceAddress, error)
}

// StaticHostProvider is a [HostProvider] that always returns the same,
// pre-configured values. It is primarily useful in tests.
type StaticHostProvider struct {
	HostnameValue  string
	AddressesValue []InterfaceAddress
	Err            error
}

func (p StaticHostProvider) Hostname() (string, error) {
	return p.HostnameValue, p.Err
}

func (p StaticHostProvider) Addresses() ([]InterfaceAddress, error) {
	return p.AddressesValue, p.Err
}

// MDNS is the top-level handle for publishing and discovering services over
// multicast DNS.
//
// A single MDNS owns one [Transport] and one [Registry], and fans the
// transport's inbound responses out to every [Publisher] and [Browser] it
// creates, since a raw channel can only be drained by one goroutine.
type MDNS struct {
	transport Transport
	registry  *Registry
	host      HostProvider
	hostname  string

	mu         sync.Mutex
	publishers map[*Service]publisherHandle
	browsers   map[*Browser]func()

	responseSubs emitter[InboundResponse]
}

type publisherHandle struct {
	pub         *Publisher
	unsubscribe func()
}

// New returns an MDNS handle that sends and receives over transport, using
// host to learn the local hostname and addresses.
func New(transport Transport, host HostProvider) (*MDNS, error) {
	hostname, err := host.Hostname()
	if err != nil {
		return nil, err
	}

	m := &MDNS{
		transport:  transport,
		registry:   NewRegistry(),
		host:       host,
		hostname:   hostname,
		publishers: make(map[*Service]publisherHandle),
		browsers:   make(map[*Browser]func()),
	}

	go m.serveQueries()
	go m.fanOutResponses()

	return m, nil
}

// Registry returns the MDNS handle's record registry.
func (m *MDNS) Registry() *Registry {
	return m.registry
}

func (m *MDNS) serveQueries() {
	for query := range m.transport.Queries() {
		for _, res := range m.registry.Respond(query) {
			m.transport.Respond(res, func(error) {})
		}
	}
}

func (m *MDNS) fanOutResponses() {
	for in := range m.transport.Responses() {
		m.responseSubs.Emit(in)
	}
}

// subscribeResponses returns a private channel that receives every inbound
// response, along with a function that cancels the subscription.
//
// The channel is buffered and lossy under sustained back-pressure: a slow
// consumer drops the oldest pending response rather than blocking the fan
// out goroutine, since mDNS responses are inherently best-effort and will
// typically be retransmitted.
func (m *MDNS) subscribeResponses() (<-chan InboundResponse, func()) {
	ch := make(chan InboundResponse, 32)

	unsubscribe := m.responseSubs.Subscribe(func(in InboundResponse) {
		select {
		case ch <- in:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- in:
			default:
			}
		}
	})

	return ch, unsubscribe
}

func (m *MDNS) addresses() []net.IP {
	addrs, err := m.host.Addresses()
	if err != nil {
		return nil
	}

	ips := make([]net.IP, len(addrs))
	for i, a := range addrs {
		ips[i] = a.Address
	}
	return ips
}

// Publish begins probing and announcing svc. It blocks until probing
// completes (or fails); the resulting announcement is then sent
// asynchronously, and svc's Up event reports when that happens. If
// probing fails, Publish returns the error (such as [ErrNameConflict]),
// nothing is announced and no ServiceDown event is emitted.
func (m *MDNS) Publish(svc *Service) error {
	if svc.IsDestroyed() {
		return ErrServiceDestroyed
	}

	svc.setHostIfEmpty(m.hostname)

	responses, unsubscribe := m.subscribeResponses()
	pub := newPublisher(svc, m.registry, m.transport, responses, m.addresses)

	svc.bind(pub.start, func() error {
		defer unsubscribe()
		return pub.stop()
	})

	m.mu.Lock()
	m.publishers[svc] = publisherHandle{pub: pub, unsubscribe: unsubscribe}
	m.mu.Unlock()

	return svc.Start()
}

// Unpublish sends a goodbye packet for svc and stops advertising it.
func (m *MDNS) Unpublish(svc *Service) error {
	return svc.Stop()
}

// UnpublishAll unpublishes every service this handle has published.
func (m *MDNS) UnpublishAll() error {
	m.mu.Lock()
	services := make([]*Service, 0, len(m.publishers))
	for svc := range m.publishers {
		services = append(services, svc)
	}
	m.mu.Unlock()

	var firstErr error
	for _, svc := range services {
		if err := svc.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Browse starts discovering service instances matching filter.
func (m *MDNS) Browse(filter Filter) (*Browser, error) {
	responses, unsubscribe := m.subscribeResponses()
	browser := NewBrowser(m.transport, responses, filter)

	m.mu.Lock()
	m.browsers[browser] = unsubscribe
	m.mu.Unlock()

	if err := browser.Start(); err != nil {
		unsubscribe()
		return nil, err
	}

	return browser, nil
}

// StopBrowse stops browser and releases the response subscription it was
// given by Browse.
func (m *MDNS) StopBrowse(browser *Browser) {
	browser.Stop()

	m.mu.Lock()
	unsubscribe, ok := m.browsers[browser]
	delete(m.browsers, browser)
	m.mu.Unlock()

	if ok {
		unsubscribe()
	}
}

// FindOne browses for the first service instance matching filter, and
// returns it as soon as one is found or ctx is done, whichever happens
// first.
//
// Running out of time is not an error: if ctx is done before any matching
// instance is observed, FindOne returns (nil, nil).
func (m *MDNS) FindOne(ctx context.Context, filter Filter) (*DiscoveredService, error) {
	browser, err := m.Browse(filter)
	if err != nil {
		return nil, err
	}
	defer m.StopBrowse(browser)

	found := make(chan *DiscoveredService, 1)
	unsubscribe := browser.OnEvent(func(e BrowserEvent) {
		if e.Kind != ServiceVanished {
			select {
			case found <- e.Service:
			default:
			}
		}
	})
	defer unsubscribe()

	for _, svc := range browser.Services() {
		return svc, nil
	}

	select {
	case svc := <-found:
		return svc, nil
	case <-ctx.Done():
		return nil, nil
	}
}

// Destroy marks every published service as destroyed (without sending a
// goodbye, per [Service.Destroy]), stops every active browser, and closes
// the underlying transport.
func (m *MDNS) Destroy() error {
	m.mu.Lock()
	services := make([]*Service, 0, len(m.publishers))
	handles := make([]publisherHandle, 0, len(m.publishers))
	for svc, h := range m.publishers {
		services = append(services, svc)
		handles = append(handles, h)
	}
	m.publishers = make(map[*Service]publisherHandle)

	browsers := make([]*Browser, 0, len(m.browsers))
	for b := range m.browsers {
		browsers = append(browsers, b)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.pub.destroy()
		h.unsubscribe()
	}
	for _, svc := range services {
		svc.Destroy()
	}
	for _, b := range browsers {
		m.StopBrowse(b)
	}

	return m.transport.Close()
}
