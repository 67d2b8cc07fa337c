package dnssd_test

import (
	"net"

	. "github.com/collight/dns-sd/dnssd"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func NewService()", func() {
	It("returns a service configured by the given options", func() {
		svc, err := NewService(
			WithProtocol("tcp"),
			WithServiceType("http"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
			WithPort(8080),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.Name()).To(Equal("Foo Bar"))
		Expect(svc.FQDN()).To(Equal("Foo Bar._http._tcp.local"))
		Expect(svc.ServiceType()).To(Equal(ServiceType{Name: "http", Protocol: "tcp"}))
	})

	It("sanitizes dots out of the instance name", func() {
		svc, err := NewService(
			WithProtocol("tcp"),
			WithServiceType("http"),
			WithInstanceName("a.b.c"),
			WithHost("host.local"),
			WithPort(8080),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.Name()).To(Equal("a-b-c"))
	})

	It("defaults the TTL to 28800 seconds", func() {
		svc, err := NewService(
			WithProtocol("tcp"),
			WithServiceType("http"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
			WithPort(8080),
		)
		Expect(err).NotTo(HaveOccurred())

		records := svc.Records(nil)
		Expect(records[0].Header().Ttl).To(BeEquivalentTo(DefaultTTL))
	})

	It("fails if the port is zero", func() {
		_, err := NewService(
			WithProtocol("tcp"),
			WithServiceType("http"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
		)
		Expect(err).To(MatchError(ErrInvalidPort))
	})

	It("fails if the protocol is empty", func() {
		_, err := NewService(
			WithServiceType("http"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
			WithPort(8080),
		)
		Expect(err).To(MatchError(ErrInvalidServiceType))
	})

	It("fails if the service type is empty", func() {
		_, err := NewService(
			WithProtocol("tcp"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
			WithPort(8080),
		)
		Expect(err).To(MatchError(ErrInvalidServiceType))
	})
})

var _ = Describe("Service lifecycle", func() {
	var svc *Service

	BeforeEach(func() {
		var err error
		svc, err = NewService(
			WithProtocol("tcp"),
			WithServiceType("http"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
			WithPort(8080),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts even with no capability handle bound", func() {
		Expect(svc.Start()).To(Succeed())
		Expect(svc.IsStarted()).To(BeTrue())
	})

	It("is idempotent to start twice", func() {
		Expect(svc.Start()).To(Succeed())
		Expect(svc.Start()).To(Succeed())
		Expect(svc.IsStarted()).To(BeTrue())
	})

	It("fails to start once destroyed", func() {
		svc.Destroy()
		Expect(svc.Start()).To(MatchError(ErrServiceDestroyed))
		Expect(svc.IsDestroyed()).To(BeTrue())
	})

	It("is a no-op to stop a service that was never started", func() {
		Expect(svc.Stop()).To(Succeed())
	})
})

var _ = Describe("func (*Service) Records()", func() {
	It("builds PTR, SRV, TXT, type-enumeration and address records in order", func() {
		svc, err := NewService(
			WithProtocol("tcp"),
			WithServiceType("http"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
			WithPort(8080),
			WithTXTRecord(TXT{{Key: "path", Value: "/"}}),
		)
		Expect(err).NotTo(HaveOccurred())

		records := svc.Records([]net.IP{net.IPv4(192, 168, 20, 1)})

		Expect(records).To(HaveLen(5))

		ptr, ok := records[0].(*dns.PTR)
		Expect(ok).To(BeTrue())
		Expect(ptr.Hdr.Name).To(Equal("_http._tcp.local."))
		Expect(ptr.Ptr).To(Equal("Foo Bar._http._tcp.local."))

		srv, ok := records[1].(*dns.SRV)
		Expect(ok).To(BeTrue())
		Expect(srv.Hdr.Name).To(Equal("Foo Bar._http._tcp.local."))
		Expect(srv.Target).To(Equal("host.local."))
		Expect(srv.Port).To(BeEquivalentTo(8080))

		txt, ok := records[2].(*dns.TXT)
		Expect(ok).To(BeTrue())
		Expect(txt.Txt).To(Equal([]string{"path=/"}))

		enumPTR, ok := records[3].(*dns.PTR)
		Expect(ok).To(BeTrue())
		Expect(enumPTR.Hdr.Name).To(Equal("_services._dns-sd._udp.local."))
		Expect(enumPTR.Ptr).To(Equal("_http._tcp.local."))

		a, ok := records[4].(*dns.A)
		Expect(ok).To(BeTrue())
		Expect(a.Hdr.Name).To(Equal("host.local."))
	})

	It("adds a PTR record per sub-type", func() {
		svc, err := NewService(
			WithProtocol("tcp"),
			WithServiceType("http"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
			WithPort(8080),
			WithSubTypes("printer", "scanner"),
		)
		Expect(err).NotTo(HaveOccurred())

		records := svc.Records(nil)
		Expect(records).To(HaveLen(6))

		subPTR, ok := records[4].(*dns.PTR)
		Expect(ok).To(BeTrue())
		Expect(subPTR.Hdr.Name).To(Equal("_printer._sub._http._tcp.local."))
		Expect(subPTR.Ptr).To(Equal("Foo Bar._http._tcp.local."))
	})

	It("skips loopback and unspecified addresses", func() {
		svc, err := NewService(
			WithProtocol("tcp"),
			WithServiceType("http"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
			WithPort(8080),
		)
		Expect(err).NotTo(HaveOccurred())

		records := svc.Records([]net.IP{net.IPv4(127, 0, 0, 1), net.IPv4zero})
		Expect(records).To(HaveLen(4))
	})

	It("omits AAAA records when IPv6 is disabled", func() {
		svc, err := NewService(
			WithProtocol("tcp"),
			WithServiceType("http"),
			WithInstanceName("Foo Bar"),
			WithHost("host.local"),
			WithPort(8080),
			WithoutIPv6(),
		)
		Expect(err).NotTo(HaveOccurred())

		records := svc.Records([]net.IP{net.ParseIP("fe80::1")})
		Expect(records).To(HaveLen(4))
	})
})
