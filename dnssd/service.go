package dnssd

import (
	"strconv"
	"sync"

	"golang.org/x/exp/slices"
)

// DefaultTTL is the default TTL applied to a [Service]'s records when no
// explicit TTL is configured.
const DefaultTTL uint32 = 28800

// maxAutoResolveAttempts bounds automatic name-conflict resolution, per
// https://www.rfc-editor.org/rfc/rfc6762#section-9.
const maxAutoResolveAttempts = 10

// ServiceEvent is the kind of transition reported by a [Service]'s event
// listeners.
type ServiceEvent int

const (
	// ServiceUp is emitted the first time a service is successfully
	// announced.
	ServiceUp ServiceEvent = iota

	// ServiceDown is emitted after a published service sends its goodbye
	// packet.
	ServiceDown
)

// serviceState is the lifecycle state of a [Service], per the state machine
// described in https://www.rfc-editor.org/rfc/rfc6762#section-8.
type serviceState int

const (
	serviceNotStarted serviceState = iota
	serviceStarted
	serviceDestroyed
)

// Service describes a service instance to be advertised over mDNS.
//
// A Service is constructed with [NewService] and handed to [MDNS.Publish],
// which drives it through probing, announcement and, eventually, goodbye.
// Service itself holds no network state; it is pure configuration plus the
// small amount of mutable state (fqdn, started/published/destroyed) that the
// state machine in §8 of RFC 6762 requires.
type Service struct {
	mu sync.Mutex

	protocol         string
	typeName         string
	subTypes         []string
	name             string
	host             string
	port             uint16
	txt              TXT
	ttl              uint32
	probe            bool
	probeAutoResolve bool
	disableIPv6      bool

	fqdn string

	state     serviceState
	published bool

	// onStart and onStop are the capability handle described in the design
	// notes: rather than the Service holding a reference to the [MDNS]
	// handle (and vice-versa), the handle that publishes this Service
	// installs these two callbacks, decoupling the two types.
	onStart func() error
	onStop  func() error

	events emitter[ServiceEvent]
}

// ServiceOption configures a [Service] constructed by [NewService].
type ServiceOption func(*Service)

// WithProtocol sets the transport protocol, "tcp" or "udp", without a
// leading underscore.
func WithProtocol(protocol string) ServiceOption {
	return func(s *Service) { s.protocol = protocol }
}

// WithServiceType sets the service name, such as "http" or "airplay",
// without a leading underscore.
func WithServiceType(t string) ServiceOption {
	return func(s *Service) { s.typeName = t }
}

// WithSubTypes adds the given selective-enumeration sub-types to the
// service, without their leading underscores.
//
// See https://www.rfc-editor.org/rfc/rfc6763#section-7.1.
func WithSubTypes(subTypes ...string) ServiceOption {
	return func(s *Service) { s.subTypes = append(s.subTypes, subTypes...) }
}

// WithInstanceName sets the service instance's unqualified name, such as
// "Office Printer". Any dots in name are replaced with dashes.
func WithInstanceName(name string) ServiceOption {
	return func(s *Service) { s.name = sanitizeInstanceName(name) }
}

// WithHost sets the hostname of the machine offering the service, such as
// "host.local". If it is never set, [MDNS.Publish] fills it in using the
// [HostProvider] supplied to [New].
func WithHost(host string) ServiceOption {
	return func(s *Service) { s.host = host }
}

// WithPort sets the TCP or UDP port the service listens on. It must be
// between 1 and 65535.
func WithPort(port uint16) ServiceOption {
	return func(s *Service) { s.port = port }
}

// WithTXTRecord sets the key/value pairs carried in the service's TXT record.
func WithTXTRecord(txt TXT) ServiceOption {
	return func(s *Service) { s.txt = txt }
}

// WithTTL sets the TTL, in seconds, applied to every record of the service.
// If it is never set, [DefaultTTL] is used.
func WithTTL(seconds uint32) ServiceOption {
	return func(s *Service) { s.ttl = seconds }
}

// WithProbe enables or disables name-uniqueness probing before the service
// is announced. It defaults to enabled, per
// https://www.rfc-editor.org/rfc/rfc6762#section-8.1.
func WithProbe(enabled bool) ServiceOption {
	return func(s *Service) { s.probe = enabled }
}

// WithProbeAutoResolve enables automatic renaming ("name (2)", "name (3)",
// …) when probing detects a conflict, instead of failing outright.
func WithProbeAutoResolve(enabled bool) ServiceOption {
	return func(s *Service) { s.probeAutoResolve = enabled }
}

// WithoutIPv6 suppresses AAAA records for the service's host, even when the
// host has IPv6 addresses.
func WithoutIPv6() ServiceOption {
	return func(s *Service) { s.disableIPv6 = true }
}

// NewService returns a new Service configured by options.
//
// It fails if port is not in the range [1, 65535], or if protocol or the
// service type are empty.
func NewService(options ...ServiceOption) (*Service, error) {
	s := &Service{
		ttl:   DefaultTTL,
		probe: true,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.port < 1 {
		return nil, ErrInvalidPort
	}

	if s.protocol == "" || s.typeName == "" {
		return nil, ErrInvalidServiceType
	}

	s.recomputeFQDN()

	return s, nil
}

// Name returns the service instance's unqualified name.
func (s *Service) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// FQDN returns the fully-qualified domain name of the service instance, as
// most recently computed. It changes across probe auto-resolve rounds.
func (s *Service) FQDN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fqdn
}

// ServiceType returns the service's type and protocol, excluding any
// sub-types. Its String method gives the canonical "_<type>._<protocol>"
// form.
func (s *Service) ServiceType() ServiceType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ServiceType{Name: s.typeName, Protocol: s.protocol}
}

// IsPublished returns true once the service's records have been announced
// at least once.
func (s *Service) IsPublished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
}

// IsStarted returns true if the service is currently started (probing,
// announcing, or announced) and has not been stopped or destroyed.
func (s *Service) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == serviceStarted
}

// IsDestroyed returns true once [Service.Destroy] has been called.
func (s *Service) IsDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == serviceDestroyed
}

// OnEvent registers fn to be called whenever the service transitions. It
// returns a function that cancels the registration.
func (s *Service) OnEvent(fn func(ServiceEvent)) (unsubscribe func()) {
	return s.events.Subscribe(fn)
}

// Start begins advertising the service, invoking the onStart capability
// installed by whatever [MDNS] handle published it.
//
// It is a no-op if the service has already started, and fails with
// [ErrServiceDestroyed] once the service has been destroyed.
func (s *Service) Start() error {
	s.mu.Lock()

	if s.state == serviceDestroyed {
		s.mu.Unlock()
		return ErrServiceDestroyed
	}

	if s.state == serviceStarted {
		s.mu.Unlock()
		return nil
	}

	s.state = serviceStarted
	onStart := s.onStart
	s.mu.Unlock()

	if onStart == nil {
		return nil
	}

	return onStart()
}

// Stop stops advertising the service, sending a goodbye packet if the
// service was published. It is a no-op if the service was never started.
func (s *Service) Stop() error {
	s.mu.Lock()

	if s.state != serviceStarted {
		s.mu.Unlock()
		return nil
	}

	s.state = serviceNotStarted
	onStop := s.onStop
	s.mu.Unlock()

	if onStop == nil {
		return nil
	}

	return onStop()
}

// Destroy marks the service as destroyed, inhibiting any future probing or
// announcement.
//
// Per the teacher's own documented open question (preserved here
// verbatim): Destroy does not itself send a goodbye packet. Callers that
// want a graceful departure must call Stop (or [MDNS.UnpublishAll]) first.
func (s *Service) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = serviceDestroyed
}

// bind installs the capability handle that connects this service to the
// [MDNS] handle that is about to publish it.
func (s *Service) bind(onStart, onStop func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStart = onStart
	s.onStop = onStop
}

// setHostIfEmpty fills in the host field when it was never configured.
func (s *Service) setHostIfEmpty(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host == "" {
		s.host = host
	}
}

// rename applies a probe-conflict auto-resolution suffix and recomputes the
// FQDN.
func (s *Service) rename(attempt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = baseInstanceName(s.name) + " (" + strconv.Itoa(attempt) + ")"
	s.recomputeFQDN()
}

// recomputeFQDN must be called with s.mu held.
func (s *Service) recomputeFQDN() {
	s.fqdn = s.name + "." + ServiceType{Name: s.typeName, Protocol: s.protocol}.String() + "." + LocalDomain
}

// markPublished records that the service's records have been announced at
// least once, and emits ServiceUp the first time this happens.
func (s *Service) markPublished() {
	s.mu.Lock()
	first := !s.published
	s.published = true
	s.mu.Unlock()

	if first {
		s.events.Emit(ServiceUp)
	}
}

// markUnpublished records that the service's goodbye packet was sent, and
// emits ServiceDown.
func (s *Service) markUnpublished() {
	s.mu.Lock()
	s.published = false
	s.mu.Unlock()

	s.events.Emit(ServiceDown)
}

// snapshot captures the fields needed to build the service's record set
// without holding s.mu for the duration of the build.
type serviceSnapshot struct {
	protocol         string
	typeName         string
	subTypes         []string
	name             string
	host             string
	port             uint16
	txt              TXT
	ttl              uint32
	probe            bool
	probeAutoResolve bool
	disableIPv6      bool
	fqdn             string
}

func (s *Service) snapshot() serviceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return serviceSnapshot{
		protocol:         s.protocol,
		typeName:         s.typeName,
		subTypes:         slices.Clone(s.subTypes),
		name:             s.name,
		host:             s.host,
		port:             s.port,
		txt:              s.txt,
		ttl:              s.ttl,
		probe:            s.probe,
		probeAutoResolve: s.probeAutoResolve,
		disableIPv6:      s.disableIPv6,
		fqdn:             s.fqdn,
	}
}

// baseInstanceName strips a previously-applied " (k)" auto-resolve suffix,
// if present, so that repeated conflicts do not stack suffixes.
func baseInstanceName(name string) string {
	i := len(name)
	if i == 0 || name[i-1] != ')' {
		return name
	}

	j := i - 1
	digits := 0
	for j > 0 && name[j-1] >= '0' && name[j-1] <= '9' {
		j--
		digits++
	}

	if digits == 0 || j < 2 || name[j-1] != '(' || name[j-2] != ' ' {
		return name
	}

	return name[:j-2]
}
