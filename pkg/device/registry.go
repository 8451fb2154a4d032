package device

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownDevice indicates the bridge reported a device-type name no
// decoder exists for.
var ErrUnknownDevice = errors.New("unknown device type")

// Factory builds a decoder bound to a register access path and address.
type Factory func(rw RegisterAccess, addr uint8) Decoder

// Registry maps device-type names to decoder factories. The set of
// supported parts is fixed at construction.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry covering all supported controllers.
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{
			NameUP9512:  func(rw RegisterAccess, addr uint8) Decoder { return NewUP9512(rw, addr) },
			NameNCP4206: func(rw RegisterAccess, addr uint8) Decoder { return NewNCP4206(rw, addr) },
			NameIR35201: func(rw RegisterAccess, addr uint8) Decoder { return NewIR35201(rw, addr) },
		},
	}
}

// New builds the decoder for the named device type.
func (r *Registry) New(name string, rw RegisterAccess, addr uint8) (Decoder, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
	return factory(rw, addr), nil
}

// Supports reports whether a decoder exists for the named device type.
func (r *Registry) Supports(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Supported returns the known device-type names, sorted.
func (r *Registry) Supported() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
