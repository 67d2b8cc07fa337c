package dnssd_test

import (
	. "github.com/collight/dns-sd/dnssd"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func TypeEnumerationDomain()", func() {
	It("returns the well-known service-type enumeration name", func() {
		Expect(TypeEnumerationDomain("local")).To(Equal("_services._dns-sd._udp.local"))
	})
})

var _ = Describe("func InstanceEnumerationDomain()", func() {
	It("returns the browsing domain for a service type", func() {
		Expect(InstanceEnumerationDomain("_http._tcp", "local")).To(Equal("_http._tcp.local"))
	})
})

var _ = Describe("func SelectiveInstanceEnumerationDomain()", func() {
	It("returns the browsing domain for a service sub-type", func() {
		Expect(SelectiveInstanceEnumerationDomain("printer", "_http._tcp", "local")).
			To(Equal("_printer._sub._http._tcp.local"))
	})
})
