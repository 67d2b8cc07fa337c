package dnssd_test

import (
	"net"

	. "github.com/collight/dns-sd/dnssd"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Registry", func() {
	var (
		reg *Registry
		ptr *dns.PTR
		srv *dns.SRV
		txt *dns.TXT
	)

	BeforeEach(func() {
		reg = NewRegistry()
		ptr = NewPTRRecord("_http._tcp.local", "Foo Bar._http._tcp.local", 120)
		srv = NewSRVRecord("Foo Bar._http._tcp.local", "host.local", 8080, 120)
		txt = NewTXTRecord("Foo Bar._http._tcp.local", nil, 120)
	})

	Describe("func (*Registry) Register()", func() {
		It("adds new records", func() {
			reg.Register([]dns.RR{ptr, srv, txt})
			Expect(reg.All()).To(HaveLen(3))
		})

		It("skips a record already registered with the same type, name and data", func() {
			reg.Register([]dns.RR{ptr})
			reg.Register([]dns.RR{NewPTRRecord("_http._tcp.local", "Foo Bar._http._tcp.local", 999)})
			Expect(reg.All()).To(HaveLen(1))
		})

		It("keeps records that differ only in data", func() {
			reg.Register([]dns.RR{ptr})
			reg.Register([]dns.RR{NewPTRRecord("_http._tcp.local", "Other._http._tcp.local", 120)})
			Expect(reg.All()).To(HaveLen(2))
		})
	})

	Describe("func (*Registry) Unregister()", func() {
		It("removes every record sharing an owner name with the given records", func() {
			reg.Register([]dns.RR{srv, txt})
			reg.Unregister([]dns.RR{NewSRVRecord("Foo Bar._http._tcp.local", "", 0, 0)})
			Expect(reg.All()).To(BeEmpty())
		})

		It("is case-insensitive", func() {
			reg.Register([]dns.RR{srv})
			reg.Unregister([]dns.RR{NewSRVRecord("FOO BAR._HTTP._TCP.LOCAL", "", 0, 0)})
			Expect(reg.All()).To(BeEmpty())
		})

		It("leaves unrelated records untouched", func() {
			reg.Register([]dns.RR{ptr, srv})
			reg.Unregister([]dns.RR{NewSRVRecord("Foo Bar._http._tcp.local", "", 0, 0)})
			Expect(reg.All()).To(ConsistOf(ptr))
		})
	})

	Describe("func (*Registry) Respond()", func() {
		BeforeEach(func() {
			reg.Register([]dns.RR{ptr, srv, txt})
		})

		It("answers a query for the PTR owner name with SRV and TXT additionals", func() {
			query := new(dns.Msg)
			query.Question = []dns.Question{
				{Name: "_http._tcp.local.", Qtype: dns.TypePTR},
			}

			responses := reg.Respond(query)
			Expect(responses).To(HaveLen(1))
			Expect(responses[0].Answers).To(ConsistOf(ptr))
			Expect(responses[0].Additionals).To(ConsistOf(srv, txt))
		})

		It("chains a PTR answer's SRV target into A/AAAA additionals", func() {
			aRecord := NewARecord("host.local", net.IPv4(10, 0, 0, 5), 120)
			reg.Register([]dns.RR{aRecord})

			query := new(dns.Msg)
			query.Question = []dns.Question{
				{Name: "_http._tcp.local.", Qtype: dns.TypePTR},
			}

			responses := reg.Respond(query)
			Expect(responses).To(HaveLen(1))
			Expect(responses[0].Answers).To(ConsistOf(ptr))
			Expect(responses[0].Additionals).To(ConsistOf(srv, txt, aRecord))
		})

		It("answers a bare-label query by matching the first label", func() {
			query := new(dns.Msg)
			query.Question = []dns.Question{
				{Name: "host", Qtype: dns.TypeANY},
			}

			aRecord := NewARecord("host.local", net.IPv4(192, 168, 20, 1), 120)
			reg.Register([]dns.RR{aRecord})

			responses := reg.Respond(query)
			Expect(responses).To(HaveLen(1))
			Expect(responses[0].Answers).To(ConsistOf(aRecord))
		})

		It("returns no responses when nothing matches", func() {
			query := new(dns.Msg)
			query.Question = []dns.Question{
				{Name: "nonexistent.local.", Qtype: dns.TypeA},
			}

			Expect(reg.Respond(query)).To(BeEmpty())
		})

		It("does not attach additionals for an ANY question", func() {
			query := new(dns.Msg)
			query.Question = []dns.Question{
				{Name: "_http._tcp.local.", Qtype: dns.TypeANY},
			}

			responses := reg.Respond(query)
			Expect(responses).To(HaveLen(1))
			Expect(responses[0].Answers).To(ConsistOf(ptr))
			Expect(responses[0].Additionals).To(BeEmpty())
		})

		It("sends one response per question without deduplicating", func() {
			query := new(dns.Msg)
			query.Question = []dns.Question{
				{Name: "_http._tcp.local.", Qtype: dns.TypePTR},
				{Name: "_http._tcp.local.", Qtype: dns.TypePTR},
			}

			responses := reg.Respond(query)
			Expect(responses).To(HaveLen(2))
			Expect(responses[0].Answers).To(ConsistOf(ptr))
			Expect(responses[1].Answers).To(ConsistOf(ptr))
		})

		It("emits a RespondedEvent", func() {
			var got *RespondedEvent
			reg.OnResponded(func(e RespondedEvent) { got = &e })

			query := new(dns.Msg)
			query.Question = []dns.Question{
				{Name: "_http._tcp.local.", Qtype: dns.TypePTR},
			}
			reg.Respond(query)

			Expect(got).NotTo(BeNil())
			Expect(got.Query).To(Equal(query))
		})
	})
})
