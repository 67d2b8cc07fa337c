// Package mdns provides tools for making and answering multicast DNS queries as
// specified by RFC-6762. See https://datatracker.ietf.org/doc/html/rfc6762.
package mdns
