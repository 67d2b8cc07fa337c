package dnssd_test

import (
	"net"

	. "github.com/collight/dns-sd/dnssd"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DNS records", func() {
	Describe("func NewPTRRecord()", func() {
		It("returns the expected PTR record", func() {
			rec := NewPTRRecord("_http._tcp.local", "Foo Bar._http._tcp.local", 120)

			Expect(rec).To(Equal(&dns.PTR{
				Hdr: dns.RR_Header{
					Name:   "_http._tcp.local.",
					Rrtype: dns.TypePTR,
					Class:  dns.ClassINET,
					Ttl:    120,
				},
				Ptr: "Foo Bar._http._tcp.local.",
			}))
		})
	})

	Describe("func NewSRVRecord()", func() {
		It("returns the expected SRV record with priority and weight fixed at 0", func() {
			rec := NewSRVRecord("Foo Bar._http._tcp.local", "host.local", 3000, 120)

			Expect(rec).To(Equal(&dns.SRV{
				Hdr: dns.RR_Header{
					Name:   "Foo Bar._http._tcp.local.",
					Rrtype: dns.TypeSRV,
					Class:  dns.ClassINET,
					Ttl:    120,
				},
				Priority: 0,
				Weight:   0,
				Target:   "host.local.",
				Port:     3000,
			}))
		})
	})

	Describe("func NewTXTRecord()", func() {
		It("returns the expected TXT record", func() {
			rec := NewTXTRecord("Foo Bar._http._tcp.local", EncodeTXT(TXT{
				{Key: "foo", Value: "bar"},
			}), 120)

			Expect(rec).To(Equal(&dns.TXT{
				Hdr: dns.RR_Header{
					Name:   "Foo Bar._http._tcp.local.",
					Rrtype: dns.TypeTXT,
					Class:  dns.ClassINET,
					Ttl:    120,
				},
				Txt: []string{"foo=bar"},
			}))
		})

		It("returns an empty TXT record when there are no items", func() {
			rec := NewTXTRecord("Foo Bar._http._tcp.local", nil, 120)
			Expect(rec.Txt).To(BeEmpty())
		})
	})

	Describe("func NewARecord()", func() {
		It("returns the expected A record for an IPv4 address", func() {
			rec := NewARecord("host.local", net.IPv4(192, 168, 20, 1), 120)

			Expect(rec).To(Equal(&dns.A{
				Hdr: dns.RR_Header{
					Name:   "host.local.",
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    120,
				},
				A: net.IPv4(192, 168, 20, 1).To4(),
			}))
		})

		It("panics for an IPv6-only address", func() {
			Expect(func() {
				NewARecord("host.local", net.ParseIP("fe80::1"), 120)
			}).To(Panic())
		})
	})

	Describe("func NewAAAARecord()", func() {
		It("returns the expected AAAA record for an IPv6 address", func() {
			rec := NewAAAARecord("host.local", net.ParseIP("fe80::1ce5:3c8b:36f:53cf"), 120)

			Expect(rec).To(Equal(&dns.AAAA{
				Hdr: dns.RR_Header{
					Name:   "host.local.",
					Rrtype: dns.TypeAAAA,
					Class:  dns.ClassINET,
					Ttl:    120,
				},
				AAAA: net.ParseIP("fe80::1ce5:3c8b:36f:53cf").To16(),
			}))
		})

		It("returns the expected AAAA record for an IPv4 address", func() {
			rec := NewAAAARecord("host.local", net.IPv4(192, 168, 20, 1), 120)

			Expect(rec).To(Equal(&dns.AAAA{
				Hdr: dns.RR_Header{
					Name:   "host.local.",
					Rrtype: dns.TypeAAAA,
					Class:  dns.ClassINET,
					Ttl:    120,
				},
				AAAA: net.IPv4(192, 168, 20, 1).To16(),
			}))
		})
	})
})
