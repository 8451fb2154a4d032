package session

import "fmt"

// DeviceDescriptor is one entry from a bridge enumeration: a 7-bit bus
// address paired with the device-type name the bridge probed.
type DeviceDescriptor struct {
	Addr uint8
	Name string
}

// String formats the descriptor for display.
func (d DeviceDescriptor) String() string {
	return fmt.Sprintf("%s (0x%02X)", d.Name, d.Addr)
}
