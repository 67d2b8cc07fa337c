package dnssd

import "errors"

// ErrInvalidServiceType is returned by [ParseServiceType] when the given
// string is not a well-formed service-type (or sub-type) string.
var ErrInvalidServiceType = errors.New("invalid service type")

// ErrInvalidPort is returned by [NewService] when the requested port is
// outside of the range [1, 65535].
var ErrInvalidPort = errors.New("port must be between 1 and 65535")

// ErrServiceDestroyed is returned by operations that require a [Service] that
// has not yet transitioned to the destroyed state.
var ErrServiceDestroyed = errors.New("service has been destroyed")

// ErrNameConflict indicates that a service instance name could not be probed
// as unique, either because automatic conflict resolution was disabled or
// because it was exhausted.
//
// See https://www.rfc-editor.org/rfc/rfc6762#section-8.1.
var ErrNameConflict = errors.New("service instance name is already in use")
