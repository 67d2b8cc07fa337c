package dnssd

import (
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// probeInterval is the spacing between successive probe queries, per
// https://www.rfc-editor.org/rfc/rfc6762#section-8.1.
const probeInterval = 250 * time.Millisecond

// initialAnnounceInterval is the delay before the first re-announcement,
// and the starting point for the exponential back-off that follows, per
// https://www.rfc-editor.org/rfc/rfc6762#section-8.3.
const initialAnnounceInterval = time.Second

// maxAnnounceInterval bounds the announce back-off: once the next interval
// reaches it, re-announcing stops.
const maxAnnounceInterval = time.Hour

// probeBurst is the number of ANY queries sent during one probe round.
const probeBurst = 3

// Publisher drives a single [Service] through RFC 6762's probe, announce
// and goodbye state machine.
//
// Probing runs on the goroutine that calls start; announcing then runs on
// a single goroutine of its own. stop and destroy signal that goroutine by
// closing a channel and wait for it to exit before doing anything else, so
// announcing and the goodbye never run on two goroutines at once.
type Publisher struct {
	svc       *Service
	registry  *Registry
	transport Transport
	responses <-chan InboundResponse
	addresses func() []net.IP

	stopOnce sync.Once
	stopCh   chan struct{}

	doneOnce sync.Once
	doneCh   chan struct{}
}

// newPublisher returns a Publisher for svc. responses must be a channel
// private to this Publisher (see [MDNS]'s response fan-out), not the
// transport's own Responses channel, since more than one Publisher and
// Browser typically share a single Transport.
func newPublisher(svc *Service, registry *Registry, transport Transport, responses <-chan InboundResponse, addresses func() []net.IP) *Publisher {
	return &Publisher{
		svc:       svc,
		registry:  registry,
		transport: transport,
		responses: responses,
		addresses: addresses,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// start probes for name uniqueness (if enabled) and, once satisfied,
// begins announcing. It is installed as the [Service]'s onStart
// capability.
//
// If probing fails — a conflict with probeAutoResolve disabled, or the
// auto-resolve budget exhausted — announceLoop is never started, so
// doneCh is closed here instead; otherwise a later stop/destroy would
// block forever in halt waiting for a close that would never come.
func (p *Publisher) start() error {
	if err := p.probeUntilUnique(); err != nil {
		p.finish()
		return err
	}

	go p.announceLoop()

	return nil
}

// finish closes doneCh exactly once, whether the announce loop ran to
// completion or was never started at all.
func (p *Publisher) finish() {
	p.doneOnce.Do(func() {
		close(p.doneCh)
	})
}

// halt stops the announce loop without sending a goodbye packet. It is
// idempotent and safe to call from both stop and destroy.
func (p *Publisher) halt() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.doneCh
}

// destroy halts the announce loop without sending a goodbye, for services
// that are torn down via [Service.Destroy] rather than [Service.Stop].
func (p *Publisher) destroy() {
	p.halt()
}

// stop sends a goodbye packet for the service's records and halts the
// announce loop. It is installed as the [Service]'s onStop capability.
//
// Per https://www.rfc-editor.org/rfc/rfc6762#section-10.1, a goodbye is
// only sent for a service that was actually published: a service stopped
// while still probing, or whose first announce transmit never succeeded,
// halts silently and reports no down transition.
func (p *Publisher) stop() error {
	p.halt()

	if !p.svc.IsPublished() {
		return nil
	}

	records := p.svc.goodbyeRecords(p.addresses())
	p.registry.Unregister(records)

	sent := make(chan error, 1)
	p.transport.Respond(&Response{Answers: records}, func(err error) { sent <- err })
	err := <-sent

	p.svc.markUnpublished()

	return err
}

// probeUntilUnique repeats the probe sequence, auto-resolving name
// conflicts when the service allows it, until the name is confirmed unique
// or the attempt budget is exhausted.
func (p *Publisher) probeUntilUnique() error {
	snap := p.svc.snapshot()
	if !snap.probe {
		return nil
	}

	for attempt := 1; attempt <= maxAutoResolveAttempts; attempt++ {
		if p.svc.IsDestroyed() {
			return ErrServiceDestroyed
		}

		conflict, err := p.probeOnce()
		if err != nil {
			return err
		}

		if !conflict {
			return nil
		}

		if !snap.probeAutoResolve {
			return ErrNameConflict
		}

		p.svc.rename(attempt + 1)
	}

	return ErrNameConflict
}

// probeOnce sends three ANY probe queries for the service's FQDN, spaced
// probeInterval apart, and reports whether a conflicting record was
// observed, per https://www.rfc-editor.org/rfc/rfc6762#section-8.1.
func (p *Publisher) probeOnce() (conflict bool, err error) {
	fqdn := p.svc.FQDN()

	jitter := time.Duration(rand.Int63n(int64(probeInterval)))
	timer := time.NewTimer(jitter)
	defer timer.Stop()

	// Responses received before the first probe is sent must be ignored,
	// per https://www.rfc-editor.org/rfc/rfc6762#section-8.1 — discard
	// anything that arrives on p.responses during the jitter wait instead
	// of letting it sit buffered for the first drain loop below to
	// mistake for a reply to our own probe.
waitJitter:
	for {
		select {
		case <-p.stopCh:
			return false, nil
		case <-p.responses:
			continue waitJitter
		case <-timer.C:
			break waitJitter
		}
	}

	for i := 0; i < probeBurst; i++ {
		if err := p.transport.Query(fqdn, dns.TypeANY); err != nil {
			return false, err
		}

		timer.Reset(probeInterval)

	drain:
		for {
			select {
			case <-p.stopCh:
				return false, nil
			case in := <-p.responses:
				if responseClaimsName(in, fqdn) {
					return true, nil
				}
			case <-timer.C:
				break drain
			}
		}
	}

	return false, nil
}

// responseClaimsName reports whether in contains any record owned by fqdn.
func responseClaimsName(in InboundResponse, fqdn string) bool {
	fqdn = strings.ToLower(strings.TrimSuffix(fqdn, "."))

	for _, rr := range in.Packet.Answer {
		if strings.ToLower(recordName(rr)) == fqdn {
			return true
		}
	}

	for _, rr := range in.Packet.Extra {
		if strings.ToLower(recordName(rr)) == fqdn {
			return true
		}
	}

	return false
}

// announceLoop registers the service's records, transmits them
// immediately, and then keeps re-announcing at an exponentially
// increasing interval (starting at one second, ×3 each step) until the
// next interval would reach one hour, or until stop is called, per
// https://www.rfc-editor.org/rfc/rfc6762#section-8.3.
func (p *Publisher) announceLoop() {
	defer p.finish()

	interval := initialAnnounceInterval

	for {
		if !p.announceOnce() {
			return
		}

		if interval >= maxAnnounceInterval {
			return
		}

		timer := time.NewTimer(interval)
		select {
		case <-p.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		interval *= 3
		if interval > maxAnnounceInterval {
			interval = maxAnnounceInterval
		}
	}
}

// announceOnce registers and transmits the service's current records once.
// It reports whether the announce loop should continue. Nothing is
// registered or sent once the service has been stopped or destroyed.
func (p *Publisher) announceOnce() bool {
	select {
	case <-p.stopCh:
		return false
	default:
	}

	if p.svc.IsDestroyed() {
		return false
	}

	records := p.svc.Records(p.addresses())
	p.registry.Register(records)

	sent := make(chan error, 1)
	p.transport.Respond(&Response{Answers: records}, func(err error) { sent <- err })

	select {
	case err := <-sent:
		if err == nil {
			p.svc.markPublished()
		}
		return true
	case <-p.stopCh:
		return false
	}
}
