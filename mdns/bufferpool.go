package mdns

import "sync"

// maxPacketSize is larger than any mDNS packet should be in practice; RFC
// 6762 recommends senders keep multicast packets under the interface MTU,
// but this package reads defensively in case a peer doesn't.
const maxPacketSize = 9000

var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, maxPacketSize)
		return &buf
	},
}

func getBuffer() []byte {
	return *(bufferPool.Get().(*[]byte))
}

func putBuffer(buf []byte) {
	buf = buf[:maxPacketSize]
	bufferPool.Put(&buf)
}
