package mdns_test

import (
	"time"

	"github.com/collight/dns-sd/dnssd"
	"github.com/collight/dns-sd/mdns"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func NewEndpoint()", func() {
	It("round-trips a query over a unicast loopback socket", func() {
		e, err := mdns.NewEndpoint(mdns.WithoutMulticast(), mdns.WithPort(15353))
		Expect(err).NotTo(HaveOccurred())
		defer e.Close()

		Expect(e.Query("_http._tcp.local", dns.TypePTR)).To(Succeed())

		Eventually(e.Queries(), time.Second).Should(Receive(WithTransform(
			func(msg *dns.Msg) string { return msg.Question[0].Name },
			Equal("_http._tcp.local."),
		)))
	})

	It("round-trips a response over a unicast loopback socket", func() {
		e, err := mdns.NewEndpoint(mdns.WithoutMulticast(), mdns.WithPort(15354))
		Expect(err).NotTo(HaveOccurred())
		defer e.Close()

		ptr := &dns.PTR{
			Hdr: dns.RR_Header{Name: "_http._tcp.local.", Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 120},
			Ptr: "Foo Bar._http._tcp.local.",
		}

		sent := make(chan error, 1)
		e.Respond(&dnssd.Response{Answers: []dns.RR{ptr}}, func(err error) { sent <- err })
		Eventually(sent, time.Second).Should(Receive(BeNil()))

		Eventually(e.Responses(), time.Second).Should(Receive(WithTransform(
			func(in dnssd.InboundResponse) int { return len(in.Packet.Answer) },
			Equal(1),
		)))
	})
})
