package dnssd

import (
	"strings"
	"sync"

	"github.com/miekg/dns"
	"golang.org/x/exp/slices"
)

// RespondedEvent is emitted by a [Registry] after it attempts to answer an
// inbound query.
type RespondedEvent struct {
	Query *dns.Msg
	Err   error
}

// Registry holds the set of DNS records currently being advertised, and
// answers queries against them.
//
// It is the mDNS analogue of the authoritative record table the teacher's
// unicast server kept per zone, but with RFC 6762's looser name-matching
// rules (queries may address either the full owner name or just its first
// label) and multicast's "don't answer what everyone already knows"
// duplicate suppression left to the caller.
type Registry struct {
	mu      sync.RWMutex
	records map[uint16][]dns.RR

	events emitter[RespondedEvent]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[uint16][]dns.RR),
	}
}

// OnResponded registers fn to be called after each call to Respond. It
// returns a function that cancels the registration.
func (r *Registry) OnResponded(fn func(RespondedEvent)) (unsubscribe func()) {
	return r.events.Subscribe(fn)
}

// Register adds records to the registry, skipping any record that is
// already present with the same type, name and data, per
// https://www.rfc-editor.org/rfc/rfc6762#section-8.3.
func (r *Registry) Register(records []dns.RR) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		rtype := recordType(rec)
		if r.contains(rtype, rec) {
			continue
		}
		r.records[rtype] = append(r.records[rtype], rec)
	}
}

// contains must be called with r.mu held.
func (r *Registry) contains(rtype uint16, rec dns.RR) bool {
	name := strings.ToLower(recordName(rec))
	data := recordData(rec)

	return slices.ContainsFunc(r.records[rtype], func(existing dns.RR) bool {
		return strings.ToLower(recordName(existing)) == name && recordData(existing) == data
	})
}

// Unregister removes every registered record whose owner name matches one
// of records, regardless of type or data. Matching is case-insensitive, per
// the ASCII case-insensitivity of DNS names.
func (r *Registry) Unregister(records []dns.RR) {
	names := make(map[string]struct{}, len(records))
	for _, rec := range records {
		names[strings.ToLower(recordName(rec))] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for rtype, bucket := range r.records {
		kept := bucket[:0]
		for _, rec := range bucket {
			if _, remove := names[strings.ToLower(recordName(rec))]; remove {
				continue
			}
			kept = append(kept, rec)
		}

		if len(kept) == 0 {
			delete(r.records, rtype)
		} else {
			r.records[rtype] = kept
		}
	}
}

// All returns every record currently registered, across all types.
func (r *Registry) All() []dns.RR {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []dns.RR
	for _, bucket := range r.records {
		out = append(out, bucket...)
	}
	return out
}

// Respond answers query against the registered records, one [Response] per
// question that has at least one match, and emits a [RespondedEvent] when
// it is done.
//
// A question with no matching record is silently ignored, per
// https://www.rfc-editor.org/rfc/rfc6762#section-6: mDNS responders never
// send an empty answer. Additionals (SRV/TXT for a PTR answer, A/AAAA for
// an SRV target) are only computed for a question that named a specific
// type; a question of type ANY gets no additionals. Responses are not
// deduplicated across questions within the same query.
func (r *Registry) Respond(query *dns.Msg) []*Response {
	r.mu.RLock()
	responses := make([]*Response, 0, len(query.Question))
	for _, q := range query.Question {
		answers := r.lookupLocked(q.Qtype, q.Name)
		if len(answers) == 0 {
			continue
		}

		res := &Response{Answers: answers}
		if q.Qtype != dns.TypeANY {
			res.Additionals = r.additionalsForLocked(answers)
		}
		responses = append(responses, res)
	}
	r.mu.RUnlock()

	r.events.Emit(RespondedEvent{Query: query})
	return responses
}

// lookupLocked must be called with r.mu held for reading. It implements the
// loose owner-name matching RFC 6762 allows for mDNS: a query for a bare
// label (no dot) matches any record whose first label equals it, in
// addition to the usual full-name match.
func (r *Registry) lookupLocked(qtype uint16, qname string) []dns.RR {
	qname = strings.ToLower(strings.TrimSuffix(qname, "."))
	bareLabel := !strings.Contains(qname, ".")

	var matches []dns.RR
	for rtype, bucket := range r.records {
		if qtype != dns.TypeANY && qtype != rtype {
			continue
		}

		for _, rec := range bucket {
			name := strings.ToLower(recordName(rec))
			if name == qname {
				matches = append(matches, rec)
				continue
			}

			if bareLabel && firstLabel(name) == qname {
				matches = append(matches, rec)
			}
		}
	}

	return matches
}

// additionalsForLocked returns the records that usefully accompany
// answers: SRV and TXT records for any PTR answer, and A/AAAA records for
// any SRV answer's target, per
// https://www.rfc-editor.org/rfc/rfc6763#section-12. It must be called
// with r.mu held for reading.
func (r *Registry) additionalsForLocked(answers []dns.RR) []dns.RR {
	var additionals []dns.RR
	seen := make(map[dns.RR]struct{})

	add := func(recs []dns.RR) {
		for _, rec := range recs {
			if _, ok := seen[rec]; ok {
				continue
			}
			seen[rec] = struct{}{}
			additionals = append(additionals, rec)
		}
	}

	addSRVTargets := func(rr *dns.SRV) {
		target := strings.ToLower(strings.TrimSuffix(rr.Target, "."))
		add(filterByName(r.records[dns.TypeA], target))
		add(filterByName(r.records[dns.TypeAAAA], target))
	}

	for _, ans := range answers {
		switch rr := ans.(type) {
		case *dns.PTR:
			target := strings.ToLower(strings.TrimSuffix(rr.Ptr, "."))
			add(filterByName(r.records[dns.TypeSRV], target))
			add(filterByName(r.records[dns.TypeTXT], target))
		case *dns.SRV:
			addSRVTargets(rr)
		}
	}

	// A PTR answer chains in its SRV above; chase that SRV's target too,
	// so a PTR-only query still gets its A/AAAA records.
	for _, rec := range additionals {
		if srv, ok := rec.(*dns.SRV); ok {
			addSRVTargets(srv)
		}
	}

	return additionals
}

func filterByName(bucket []dns.RR, name string) []dns.RR {
	var out []dns.RR
	for _, rec := range bucket {
		if strings.ToLower(recordName(rec)) == name {
			out = append(out, rec)
		}
	}
	return out
}

func firstLabel(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
