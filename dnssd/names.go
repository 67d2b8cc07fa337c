package dnssd

import "strings"

// LocalDomain is the domain under which all mDNS records are published and
// queried, as mandated by https://www.rfc-editor.org/rfc/rfc6762#section-3.
const LocalDomain = "local"

// TypeEnumerationDomain returns the DNS name queried to enumerate every
// service type advertised within domain.
//
// See https://www.rfc-editor.org/rfc/rfc6763#section-9.
func TypeEnumerationDomain(domain string) string {
	return "_services._dns-sd._udp." + domain
}

// InstanceEnumerationDomain returns the DNS name queried to browse for all
// instances of serviceType within domain.
//
// See https://www.rfc-editor.org/rfc/rfc6763#section-4.
func InstanceEnumerationDomain(serviceType, domain string) string {
	return serviceType + "." + domain
}

// SelectiveInstanceEnumerationDomain returns the DNS name queried to browse
// for instances of serviceType that advertise the given sub-type.
//
// See https://www.rfc-editor.org/rfc/rfc6763#section-7.1.
func SelectiveInstanceEnumerationDomain(subType, serviceType, domain string) string {
	return "_" + subType + "._sub." + InstanceEnumerationDomain(serviceType, domain)
}

// sanitizeInstanceName replaces each dot in n with a dash.
//
// Unlike the escaping scheme used for arbitrary unicast DNS-SD instance
// names, mDNS service instance names published by this package are
// constrained to avoid dots altogether, so that the fully-qualified domain
// name built from them never needs label-boundary escaping.
func sanitizeInstanceName(n string) string {
	return strings.ReplaceAll(n, ".", "-")
}
