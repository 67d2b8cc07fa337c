package dnssd

import "github.com/miekg/dns"

// RemoteInfo describes the sender of an inbound multicast DNS packet.
//
// See https://www.rfc-editor.org/rfc/rfc6762#section-6.
type RemoteInfo struct {
	// Address is the string representation of the sender's IP address.
	Address string

	// Family is either "IPv4" or "IPv6".
	Family string

	// Port is the UDP port the packet was sent from.
	Port int

	// Size is the number of bytes in the packet as received on the wire.
	Size int
}

// Response is a multicast DNS response message, as built by the [Registry]
// and the [Publisher].
type Response struct {
	// Answers are the records that directly answer a question.
	Answers []dns.RR

	// Additionals are records included to help the recipient avoid a
	// subsequent query, as described in
	// https://www.rfc-editor.org/rfc/rfc6762#section-12.
	Additionals []dns.RR
}

// Transport is the external collaborator that sends and receives multicast
// DNS packets.
//
// The core of this module (the [Registry], [Publisher] and [Browser]) never
// touches a socket directly; it is built entirely against this interface, as
// described in https://www.rfc-editor.org/rfc/rfc6762 and RFC 6763. Concrete
// implementations, such as the ones in the sibling mdns package, own the
// actual UDP multicast sockets.
type Transport interface {
	// Query sends a single question.
	Query(name string, qtype uint16) error

	// Respond sends a response message. cb is invoked with the outcome of
	// the send, and is never called synchronously from within Respond.
	Respond(res *Response, cb func(error))

	// Queries returns the channel on which inbound queries are delivered.
	//
	// The channel is closed when the transport is closed.
	Queries() <-chan *dns.Msg

	// Responses returns the channel on which inbound responses are
	// delivered, along with information about the sender.
	//
	// The channel is closed when the transport is closed.
	Responses() <-chan InboundResponse

	// Close releases the sockets and any other resources held by the
	// transport. It is idempotent.
	Close() error
}

// InboundResponse pairs a decoded response packet with information about the
// peer that sent it.
type InboundResponse struct {
	Packet  *dns.Msg
	Referer RemoteInfo
}
