package dnssd

import (
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DiscoveredService is a service instance learned from the network by a
// [Browser].
type DiscoveredService struct {
	// Name is the service instance's unqualified name.
	Name string

	// FQDN is the service instance's fully-qualified domain name.
	FQDN string

	// Type is the service name, without its leading underscore.
	Type string

	// Protocol is "tcp" or "udp", without its leading underscore.
	Protocol string

	// SubTypes lists the selective-enumeration sub-types this instance was
	// found to advertise.
	SubTypes []string

	// Host is the target of the instance's SRV record.
	Host string

	// Port is the TCP or UDP port from the instance's SRV record.
	Port uint16

	// Addresses holds every A/AAAA address resolved for Host.
	Addresses []net.IP

	// Text holds the string-decoded view of the instance's TXT record.
	Text map[string]string

	// RawText holds the raw-bytes view of the instance's TXT record.
	RawText map[string][]byte

	// TTL is the TTL, in seconds, reported on the instance's PTR record.
	TTL uint32

	// Referer describes the peer the records were received from.
	Referer RemoteInfo

	// LastSeen is when this instance was last observed or refreshed.
	LastSeen time.Time
}

// Expired reports whether the instance's TTL has elapsed since it was last
// seen, per https://www.rfc-editor.org/rfc/rfc6762#section-10.
func (d *DiscoveredService) Expired() bool {
	return time.Since(d.LastSeen) >= time.Duration(d.TTL)*time.Second
}

// extractDiscoveredServices builds one [DiscoveredService] per PTR answer
// in in, stitching together the SRV, TXT and address records carried
// alongside it in either the answer or additional section. Each instance's
// Type and Protocol are parsed from the PTR's own owner name, not assumed
// from whatever filter prompted the query, since a single response may
// carry records for services the caller never asked about.
//
// See https://www.rfc-editor.org/rfc/rfc6763#section-4.1.
func extractDiscoveredServices(in InboundResponse, now time.Time) []*DiscoveredService {
	all := make([]dns.RR, 0, len(in.Packet.Answer)+len(in.Packet.Extra))
	all = append(all, in.Packet.Answer...)
	all = append(all, in.Packet.Extra...)

	var live []dns.RR
	for _, rr := range all {
		if recordTTL(rr) > 0 {
			live = append(live, rr)
		}
	}

	srvByName := make(map[string]*dns.SRV)
	txtByName := make(map[string]*dns.TXT)
	addrsByName := make(map[string][]net.IP)
	subTypesByTarget := make(map[string][]string)

	for _, rr := range live {
		switch rec := rr.(type) {
		case *dns.SRV:
			srvByName[strings.ToLower(recordName(rec))] = rec
		case *dns.TXT:
			txtByName[strings.ToLower(recordName(rec))] = rec
		case *dns.A:
			name := strings.ToLower(recordName(rec))
			addrsByName[name] = append(addrsByName[name], rec.A)
		case *dns.AAAA:
			name := strings.ToLower(recordName(rec))
			addrsByName[name] = append(addrsByName[name], rec.AAAA)
		case *dns.PTR:
			if subType, ok := subTypeOf(recordName(rec)); ok {
				target := strings.ToLower(strings.TrimSuffix(rec.Ptr, "."))
				subTypesByTarget[target] = append(subTypesByTarget[target], subType)
			}
		}
	}

	var discovered []*DiscoveredService

	for _, rr := range live {
		ptr, ok := rr.(*dns.PTR)
		if !ok {
			continue
		}

		if _, ok := subTypeOf(recordName(ptr)); ok {
			continue
		}

		svcType, ok := parseServiceTypeFromOwner(recordName(ptr))
		if !ok {
			continue
		}

		instanceFQDN := strings.TrimSuffix(ptr.Ptr, ".")
		srv := srvByName[strings.ToLower(instanceFQDN)]
		if srv == nil {
			continue
		}

		instanceName, _ := splitInstanceFQDN(instanceFQDN, svcType)
		host := strings.TrimSuffix(srv.Target, ".")

		txtRec := txtByName[strings.ToLower(instanceFQDN)]
		var text map[string]string
		var rawText map[string][]byte
		if txtRec != nil {
			items := make([][]byte, len(txtRec.Txt))
			for i, s := range txtRec.Txt {
				items[i] = []byte(s)
			}
			text, rawText = DecodeTXT(items)
		}

		discovered = append(discovered, &DiscoveredService{
			Name:      instanceName,
			FQDN:      instanceFQDN,
			Type:      svcType.Name,
			Protocol:  svcType.Protocol,
			SubTypes:  subTypesByTarget[strings.ToLower(instanceFQDN)],
			Host:      host,
			Port:      srv.Port,
			Addresses: addrsByName[strings.ToLower(host)],
			Text:      text,
			RawText:   rawText,
			TTL:       recordTTL(ptr),
			Referer:   in.Referer,
			LastSeen:  now,
		})
	}

	return discovered
}

// parseServiceTypeFromOwner parses a non-subtype PTR's owner name (the
// type enumeration domain, "_<service>._<proto>.local.") into a
// ServiceType.
func parseServiceTypeFromOwner(owner string) (ServiceType, bool) {
	owner = strings.TrimSuffix(owner, ".")

	suffix := "." + LocalDomain
	if !strings.HasSuffix(strings.ToLower(owner), strings.ToLower(suffix)) {
		return ServiceType{}, false
	}
	owner = owner[:len(owner)-len(suffix)]

	t, err := ParseServiceType(owner)
	if err != nil {
		return ServiceType{}, false
	}
	return t, true
}

// subTypeOf reports whether owner is a selective-enumeration domain
// ("_<sub>._sub.<...>"), returning the sub-type label if so.
func subTypeOf(owner string) (string, bool) {
	const marker = "._sub."
	i := strings.Index(owner, marker)
	if i <= 0 || owner[0] != '_' {
		return "", false
	}
	return owner[1:i], true
}

// splitInstanceFQDN strips the service-type and domain suffix from fqdn,
// returning the unqualified instance name.
func splitInstanceFQDN(fqdn string, serviceType ServiceType) (name, rest string) {
	suffix := "." + serviceType.String() + "." + LocalDomain
	if strings.HasSuffix(strings.ToLower(fqdn), strings.ToLower(suffix)) {
		return fqdn[:len(fqdn)-len(suffix)], suffix
	}
	return fqdn, ""
}
