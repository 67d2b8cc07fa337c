package dnssd

import (
	"bytes"
	"fmt"
)

// TXTEntry is a single key/value pair destined for a service's TXT record.
//
// Value may be a string, a bool, any numeric type, or a []byte. Anything
// else is rendered with fmt.Sprint.
type TXTEntry struct {
	Key   string
	Value any
}

// TXT is an ordered set of [TXTEntry] values, as supplied when constructing a
// [Service]. Go maps do not preserve insertion order, so TXT is a slice
// rather than a map[string]any — this is what lets EncodeTXT honor the
// "preserve insertion order" requirement of
// https://www.rfc-editor.org/rfc/rfc6763#section-6.
type TXT []TXTEntry

// EncodeTXT renders t as the list of "key=value" byte strings carried in a
// TXT record, in the order the entries were added.
func EncodeTXT(t TXT) [][]byte {
	out := make([][]byte, 0, len(t))

	for _, e := range t {
		var w bytes.Buffer
		w.WriteString(e.Key)
		w.WriteByte('=')

		switch v := e.Value.(type) {
		case []byte:
			w.Write(v)
		case string:
			w.WriteString(v)
		default:
			fmt.Fprint(&w, v)
		}

		out = append(out, w.Bytes())
	}

	return out
}

// DecodeTXT parses the items of a TXT record.
//
// text contains each item decoded as a UTF-8 string (lossily, if the value
// contains invalid UTF-8); raw contains the same values as the unmodified
// bytes originally carried on the wire. Per
// https://www.rfc-editor.org/rfc/rfc6763#section-6.4, an item with no '='
// character is treated as having an empty value; an item that would produce
// an empty key is discarded entirely.
func DecodeTXT(items [][]byte) (text map[string]string, raw map[string][]byte) {
	text = map[string]string{}
	raw = map[string][]byte{}

	for _, item := range items {
		i := bytes.IndexByte(item, '=')

		var key string
		var value []byte

		if i == -1 {
			key = string(item)
		} else {
			key = string(item[:i])
			value = append([]byte{}, item[i+1:]...)
		}

		if key == "" {
			continue
		}

		raw[key] = value
		text[key] = string(value)
	}

	return text, raw
}
