package dnssd

import (
	"net"

	"github.com/collight/dns-sd/internal/domainname"
	"github.com/miekg/dns"
)

// NewPTRRecord returns a PTR record mapping owner to target.
func NewPTRRecord(owner, target string, ttl uint32) *dns.PTR {
	return &dns.PTR{
		Hdr: dns.RR_Header{
			Name:   domainname.Absolute(owner),
			Rrtype: dns.TypePTR,
			Class:  dns.ClassINET,
			Ttl:    ttl,
		},
		Ptr: domainname.Absolute(target),
	}
}

// NewSRVRecord returns the SRV record for a service instance.
//
// Priority and weight are fixed at 0, per the data model this package
// implements — mDNS service discovery does not use them.
//
// See https://www.rfc-editor.org/rfc/rfc6763#section-5.
func NewSRVRecord(owner, target string, port uint16, ttl uint32) *dns.SRV {
	return &dns.SRV{
		Hdr: dns.RR_Header{
			Name:   domainname.Absolute(owner),
			Rrtype: dns.TypeSRV,
			Class:  dns.ClassINET,
			Ttl:    ttl,
		},
		Target: domainname.Absolute(target),
		Port:   port,
	}
}

// NewTXTRecord returns a TXT record carrying the given pre-encoded items.
//
// See https://www.rfc-editor.org/rfc/rfc6763#section-6.
func NewTXTRecord(owner string, items [][]byte, ttl uint32) *dns.TXT {
	txt := make([]string, len(items))
	for i, item := range items {
		txt[i] = string(item)
	}

	return &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   domainname.Absolute(owner),
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    ttl,
		},
		Txt: txt,
	}
}

// NewARecord returns an A record mapping owner to an IPv4 address.
//
// ip must be an IPv4 address, or an IPv4 address expressed as an IPv6
// address; it panics otherwise.
func NewARecord(owner string, ip net.IP, ttl uint32) *dns.A {
	v4 := ip.To4()
	if v4 == nil {
		panic("IP address is not a valid IPv4 address")
	}

	return &dns.A{
		Hdr: dns.RR_Header{
			Name:   domainname.Absolute(owner),
			Rrtype: dns.TypeA,
			Class:  dns.ClassINET,
			Ttl:    ttl,
		},
		A: append(net.IP{}, v4...),
	}
}

// NewAAAARecord returns an AAAA record mapping owner to an IPv4 or IPv6
// address.
//
// ip must be a valid IP address; it panics otherwise.
func NewAAAARecord(owner string, ip net.IP, ttl uint32) *dns.AAAA {
	v6 := ip.To16()
	if v6 == nil {
		panic("IP address is not a valid IP address")
	}

	return &dns.AAAA{
		Hdr: dns.RR_Header{
			Name:   domainname.Absolute(owner),
			Rrtype: dns.TypeAAAA,
			Class:  dns.ClassINET,
			Ttl:    ttl,
		},
		AAAA: append(net.IP{}, v6...),
	}
}

// recordName returns the owner name of rr, without the trailing dot.
func recordName(rr dns.RR) string {
	name := rr.Header().Name
	if n := len(name); n > 0 && name[n-1] == '.' {
		return name[:n-1]
	}
	return name
}

// recordType returns the DNS record type of rr.
func recordType(rr dns.RR) uint16 {
	return rr.Header().Rrtype
}

// recordTTL returns the TTL, in seconds, of rr.
func recordTTL(rr dns.RR) uint32 {
	return rr.Header().Ttl
}

// recordData returns a comparable representation of rr's type-specific data,
// excluding its header name, type, class and TTL.
//
// It is used to detect duplicate (type, name, data) records when registering
// records with the [Registry], per
// https://www.rfc-editor.org/rfc/rfc6762#section-8.3.
func recordData(rr dns.RR) string {
	clone := dns.Copy(rr)
	h := clone.Header()
	h.Ttl = 0
	return clone.String()
}
