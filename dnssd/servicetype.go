package dnssd

import "strings"

// ServiceType identifies the kind of service advertised or browsed for, as
// the "<service>" portion of a DNS-SD service instance name.
//
// See https://www.rfc-editor.org/rfc/rfc6763#section-4.1 and, for sub-types,
// https://www.rfc-editor.org/rfc/rfc6763#section-7.1.
type ServiceType struct {
	// Name is the service name, such as "http" or "airplay", without its
	// leading underscore.
	Name string

	// Protocol is either "tcp" or "udp", without its leading underscore.
	Protocol string

	// SubType, if non-empty, narrows the service type to instances that
	// additionally advertise this selective enumeration category.
	SubType string
}

// ParseServiceType parses a canonical service-type string, such as
// "_http._tcp" or "_printer._sub._http._tcp".
//
// It fails if s is empty, if the name or protocol labels are empty, or if
// "_sub" appears as the first label.
func ParseServiceType(s string) (ServiceType, error) {
	if s == "" {
		return ServiceType{}, ErrInvalidServiceType
	}

	var labels []string
	for _, label := range strings.Split(s, ".") {
		label = strings.TrimSpace(label)
		label = strings.TrimPrefix(label, "_")
		labels = append(labels, label)
	}

	subIndex := -1
	for i, label := range labels {
		if label == "sub" {
			subIndex = i
			break
		}
	}

	var t ServiceType

	switch {
	case subIndex == 0:
		return ServiceType{}, ErrInvalidServiceType

	case subIndex > 0:
		if subIndex+2 >= len(labels) {
			return ServiceType{}, ErrInvalidServiceType
		}

		t.SubType = labels[subIndex-1]
		t.Name = labels[subIndex+1]
		t.Protocol = labels[subIndex+2]

	default:
		if len(labels) < 2 {
			return ServiceType{}, ErrInvalidServiceType
		}

		t.Name = labels[0]
		t.Protocol = labels[1]
	}

	if t.Name == "" || t.Protocol == "" {
		return ServiceType{}, ErrInvalidServiceType
	}

	return t, nil
}

// String returns the canonical string form of t.
func (t ServiceType) String() string {
	var w strings.Builder

	if t.SubType != "" {
		w.WriteByte('_')
		w.WriteString(t.SubType)
		w.WriteString("._sub.")
	}

	w.WriteByte('_')
	w.WriteString(t.Name)
	w.WriteString("._")
	w.WriteString(t.Protocol)

	return w.String()
}
