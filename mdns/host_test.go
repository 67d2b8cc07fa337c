package mdns

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func isZeroHardwareAddr()", func() {
	DescribeTable(
		"reports whether mac is an all-zero hardware address",
		func(mac net.HardwareAddr, want bool) {
			Expect(isZeroHardwareAddr(mac)).To(Equal(want))
		},
		Entry("nil", net.HardwareAddr(nil), false),
		Entry("zero", net.HardwareAddr{0, 0, 0, 0, 0, 0}, true),
		Entry("non-zero", net.HardwareAddr{0x02, 0x42, 0xac, 0x11, 0x00, 0x02}, false),
	)
})

var _ = Describe("func addrIP()", func() {
	It("extracts the IP from a *net.IPNet", func() {
		ipNet := &net.IPNet{IP: net.IPv4(192, 168, 1, 5), Mask: net.CIDRMask(24, 32)}
		Expect(addrIP(ipNet).String()).To(Equal("192.168.1.5"))
	})

	It("extracts the IP from a *net.IPAddr", func() {
		ipAddr := &net.IPAddr{IP: net.ParseIP("fe80::1")}
		Expect(addrIP(ipAddr)).To(Equal(net.ParseIP("fe80::1")))
	})

	It("returns nil for an unrecognized net.Addr", func() {
		Expect(addrIP(&net.UnixAddr{Name: "/tmp/x"})).To(BeNil())
	})
})

var _ = Describe("func (HostProvider) Hostname()", func() {
	It("appends the .local suffix", func() {
		name, err := HostProvider{}.Hostname()
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(HaveSuffix(".local"))
	})
})
