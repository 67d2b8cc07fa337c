package dnssd

import (
	"net"

	"github.com/miekg/dns"
)

// Records builds the full set of DNS resource records that advertise the
// service, given the host's current set of non-loopback interface
// addresses.
//
// The order matches the way a resolver typically wants to consume a
// service announcement: the instance's own PTR/SRV/TXT triple first, then
// the records that make the service discoverable by type, then the
// instance's address records.
//
// See https://www.rfc-editor.org/rfc/rfc6763#section-4.1.
func (s *Service) Records(addresses []net.IP) []dns.RR {
	snap := s.snapshot()
	return buildServiceRecords(snap, addresses)
}

// goodbyeRecords returns the same records as Records, but with every TTL
// set to zero, per https://www.rfc-editor.org/rfc/rfc6762#section-10.1.
func (s *Service) goodbyeRecords(addresses []net.IP) []dns.RR {
	records := s.Records(addresses)
	for _, rr := range records {
		rr.Header().Ttl = 0
	}
	return records
}

func buildServiceRecords(s serviceSnapshot, addresses []net.IP) []dns.RR {
	svcType := ServiceType{Name: s.typeName, Protocol: s.protocol}
	svcTypeStr := svcType.String()
	instanceDomain := InstanceEnumerationDomain(svcTypeStr, LocalDomain)

	var records []dns.RR

	records = append(records, NewPTRRecord(instanceDomain, s.fqdn, s.ttl))
	records = append(records, NewSRVRecord(s.fqdn, s.host, s.port, s.ttl))
	records = append(records, NewTXTRecord(s.fqdn, EncodeTXT(s.txt), s.ttl))
	records = append(records, NewPTRRecord(TypeEnumerationDomain(LocalDomain), instanceDomain, s.ttl))

	for _, subType := range s.subTypes {
		owner := SelectiveInstanceEnumerationDomain(subType, svcTypeStr, LocalDomain)
		records = append(records, NewPTRRecord(owner, s.fqdn, s.ttl))
	}

	for _, addr := range addresses {
		if addr.IsLoopback() || addr.IsUnspecified() {
			continue
		}

		if v4 := addr.To4(); v4 != nil {
			records = append(records, NewARecord(s.host, v4, s.ttl))
			continue
		}

		if s.disableIPv6 {
			continue
		}

		records = append(records, NewAAAARecord(s.host, addr, s.ttl))
	}

	return records
}
