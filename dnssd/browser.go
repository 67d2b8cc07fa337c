package dnssd

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

// BrowserEventKind distinguishes the kinds of change a [Browser] reports.
type BrowserEventKind int

const (
	// ServiceAppeared is emitted the first time an instance is observed.
	ServiceAppeared BrowserEventKind = iota

	// ServiceUpdated is emitted each time a previously-seen instance is
	// observed again, whether or not its records changed.
	ServiceUpdated

	// ServiceVanished is emitted when an instance sends a goodbye packet,
	// or its TTL elapses without a refresh.
	ServiceVanished
)

// BrowserEvent is delivered to a [Browser]'s listeners.
type BrowserEvent struct {
	Kind    BrowserEventKind
	Service *DiscoveredService
}

// Filter narrows the service instances a [Browser] reports.
type Filter struct {
	// Protocol is the transport protocol to browse, "tcp" or "udp",
	// without a leading underscore.
	Protocol string

	// Type is the service name to browse, without a leading underscore.
	Type string

	// SubTypes, if non-empty, restricts the browse to instances
	// advertising every one of the given selective-enumeration
	// sub-types.
	SubTypes []string

	// Name, if set, restricts the browse to instances whose unqualified
	// name matches. It may be a string, compared case-insensitively for
	// exact equality, or a *regexp.Regexp, matched against the name.
	Name any

	// Text, if non-empty, restricts the browse to instances whose TXT
	// record contains every given key. Each value may be a string,
	// compared for exact equality, or a *regexp.Regexp, matched against
	// the TXT value.
	Text map[string]any
}

func (f Filter) serviceType() ServiceType {
	return ServiceType{Name: f.Type, Protocol: f.Protocol}
}

func (f Filter) matches(d *DiscoveredService) bool {
	if !strings.EqualFold(f.Type, d.Type) || !strings.EqualFold(f.Protocol, d.Protocol) {
		return false
	}

	if f.Name != nil && !matchRule(f.Name, d.Name, true) {
		return false
	}

	for _, want := range f.SubTypes {
		found := false
		for _, have := range d.SubTypes {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for k, want := range f.Text {
		have, ok := d.Text[k]
		if !ok || !matchRule(want, have, false) {
			return false
		}
	}

	return true
}

// matchRule applies a filter rule (a string for exact equality, or a
// *regexp.Regexp) against value. Exact-string comparisons are
// case-insensitive only for instance-name matching (foldCase).
func matchRule(rule any, value string, foldCase bool) bool {
	switch r := rule.(type) {
	case string:
		if foldCase {
			return strings.EqualFold(r, value)
		}
		return r == value
	case *regexp.Regexp:
		return r.MatchString(value)
	default:
		return false
	}
}

type browserEntry struct {
	service *DiscoveredService
	timer   *time.Timer
}

// Browser discovers service instances matching a [Filter] by sending PTR
// queries and listening for responses on a [Transport].
//
// Unlike [Publisher], which owns a single goroutine for its whole
// lifetime, Browser's loop only runs between Start and Stop, so that a
// caller done browsing can release the transport's response channel for
// other consumers (in practice, the [MDNS] handle fans out inbound
// responses to every active browser, so this mostly matters for tests that
// construct a Browser directly).
type Browser struct {
	transport Transport
	responses <-chan InboundResponse
	filter    Filter

	mu       sync.Mutex
	started  bool
	services map[string]*browserEntry
	events   emitter[BrowserEvent]

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBrowser returns a Browser that will query transport for instances
// matching filter once started. responses must be a channel private to
// this Browser (see [MDNS]'s response fan-out), not the transport's own
// Responses channel, since more than one Browser and Publisher typically
// share a single Transport.
func NewBrowser(transport Transport, responses <-chan InboundResponse, filter Filter) *Browser {
	return &Browser{
		transport: transport,
		responses: responses,
		filter:    filter,
		services:  make(map[string]*browserEntry),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// OnEvent registers fn to be called for every appearance, update or
// vanishing of a matching instance. It returns a function that cancels the
// registration.
func (b *Browser) OnEvent(fn func(BrowserEvent)) (unsubscribe func()) {
	return b.events.Subscribe(fn)
}

// Services returns a snapshot of every currently-known matching instance.
func (b *Browser) Services() []*DiscoveredService {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*DiscoveredService, 0, len(b.services))
	for _, e := range b.services {
		out = append(out, e.service)
	}
	return out
}

// Start sends the initial queries and begins listening for responses.
// It is a no-op if the browser has already started.
func (b *Browser) Start() error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.mu.Unlock()

	if err := b.Update(); err != nil {
		return err
	}

	go b.loop()

	return nil
}

// Update re-sends the browser's queries, prompting fresh responses from
// any instance still present on the network.
//
// When the browser has more than one query name to send (one per
// sub-type), they are sent concurrently: a single slow or blocking
// Transport.Query call should not delay the others.
func (b *Browser) Update() error {
	names := b.queryNames()

	var g errgroup.Group
	for _, name := range names {
		name := name
		g.Go(func() error {
			return b.transport.Query(name, dns.TypePTR)
		})
	}
	return g.Wait()
}

func (b *Browser) queryNames() []string {
	svcType := b.filter.serviceType().String()

	var names []string
	if len(b.filter.SubTypes) == 0 {
		names = []string{InstanceEnumerationDomain(svcType, LocalDomain)}
	} else {
		names = make([]string, len(b.filter.SubTypes))
		for i, sub := range b.filter.SubTypes {
			names[i] = SelectiveInstanceEnumerationDomain(sub, svcType, LocalDomain)
		}
	}

	// RFC 6763 §4.2: when the filter names an exact instance, narrow the
	// query to that instance rather than the whole service type.
	if name, ok := b.filter.Name.(string); ok && name != "" {
		for i, n := range names {
			names[i] = name + "." + n
		}
	}

	return names
}

// Stop halts the browser's response loop and cancels every pending TTL
// timer. It does not clear previously-reported services from Services.
func (b *Browser) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()

	close(b.stopCh)
	<-b.doneCh

	b.mu.Lock()
	for _, e := range b.services {
		e.timer.Stop()
	}
	b.mu.Unlock()
}

func (b *Browser) loop() {
	defer close(b.doneCh)

	for {
		select {
		case <-b.stopCh:
			return
		case in, ok := <-b.responses:
			if !ok {
				return
			}
			b.handleResponse(in)
		}
	}
}

// handleResponse sweeps goodbye (TTL 0) records before extracting and
// reporting any live instances in the same packet, so that a single
// packet containing both a goodbye for one instance and an announcement
// for another is handled correctly.
func (b *Browser) handleResponse(in InboundResponse) {
	b.sweepGoodbyes(in)

	now := time.Now()
	for _, d := range extractDiscoveredServices(in, now) {
		if !b.filter.matches(d) {
			// A previously-matching instance may have changed in a way
			// that now fails the filter (e.g. its TXT record dropped a
			// required key); such an instance is removed rather than
			// left stale.
			b.removeService(d.FQDN)
			continue
		}
		b.addOrUpdate(d)
	}
}

func (b *Browser) sweepGoodbyes(in InboundResponse) {
	all := make([]dns.RR, 0, len(in.Packet.Answer)+len(in.Packet.Extra))
	all = append(all, in.Packet.Answer...)
	all = append(all, in.Packet.Extra...)

	for _, rr := range all {
		if recordTTL(rr) != 0 {
			continue
		}

		var fqdn string
		if ptr, ok := rr.(*dns.PTR); ok {
			fqdn = strings.TrimSuffix(ptr.Ptr, ".")
		} else {
			fqdn = recordName(rr)
		}

		b.removeService(fqdn)
	}
}

func (b *Browser) addOrUpdate(d *DiscoveredService) {
	key := strings.ToLower(d.FQDN)

	b.mu.Lock()
	existing, wasKnown := b.services[key]
	if wasKnown {
		existing.timer.Stop()
	}

	entry := &browserEntry{service: d}
	ttl := time.Duration(d.TTL) * time.Second
	entry.timer = time.AfterFunc(ttl, func() { b.expire(key) })
	b.services[key] = entry
	b.mu.Unlock()

	kind := ServiceAppeared
	if wasKnown {
		kind = ServiceUpdated
	}
	b.events.Emit(BrowserEvent{Kind: kind, Service: d})
}

func (b *Browser) expire(key string) {
	b.mu.Lock()
	entry, ok := b.services[key]
	if ok {
		delete(b.services, key)
	}
	b.mu.Unlock()

	if ok {
		b.events.Emit(BrowserEvent{Kind: ServiceVanished, Service: entry.service})
	}
}

func (b *Browser) removeService(fqdn string) {
	key := strings.ToLower(fqdn)

	b.mu.Lock()
	entry, ok := b.services[key]
	if ok {
		entry.timer.Stop()
		delete(b.services, key)
	}
	b.mu.Unlock()

	if ok {
		b.events.Emit(BrowserEvent{Kind: ServiceVanished, Service: entry.service})
	}
}
