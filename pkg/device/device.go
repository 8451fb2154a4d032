package device

import (
	"github.com/Giovanni-Lovison/VCore/pkg/wire"
)

// RegisterAccess is the only channel a decoder has to the hardware. Both
// methods map to a single bulk transaction on the selected device. The
// session layer implements this on top of the bridge link.
type RegisterAccess interface {
	// ReadRegisters reads the given register addresses in one transaction
	// and returns the raw values aligned with the request order.
	ReadRegisters(regs []uint8) ([]int, error)

	// WriteRegisters writes the given register/value pairs in one
	// transaction.
	WriteRegisters(writes []wire.RegisterWrite) error
}

// Decoder is the capability interface shared by all supported controllers.
// Snapshot methods never fail: a failed or short read yields a zero
// snapshot with Valid false.
type Decoder interface {
	// DeviceName returns the device-type name as reported by the bridge.
	DeviceName() string

	// Addr returns the 7-bit bus address the decoder was built for.
	Addr() uint8

	// Measurements performs one bulk read and decodes the electrical
	// measurement snapshot.
	Measurements() Measurements

	// ProtectionStatus performs one bulk read and decodes the protection
	// flag snapshot.
	ProtectionStatus() Protections
}

// Measurements is a decoded electrical snapshot. Fields a given controller
// cannot report stay at their zero value. Valid is false when the
// underlying bulk read failed or came back short; all other fields are
// zero in that case.
type Measurements struct {
	Valid bool

	Voltage     float64 // output voltage, V
	Current     float64 // output current, A
	AvgCurrent  float64 // averaged output current, A
	Power       float64 // output power, W
	Temperature float64 // controller temperature, degrees C
	VRShutdown  float64 // thermal shutdown threshold, V

	// OperatingPhases is the number of phases the controller reports as
	// running, 0 when the part does not monitor it.
	OperatingPhases int

	// Protections carries the fault flags sampled in the same bulk read.
	// On parts with per-protection enable bits, disabled protections
	// always report false here regardless of the raw status bit.
	Protections Protections
}

// Protections is a decoded protection flag snapshot. It is a superset over
// all supported controllers; flags a given part does not implement stay
// false. Valid is false when the underlying bulk read failed or came back
// short.
type Protections struct {
	Valid bool

	OTP        bool // over temperature fault
	TotalOCP   bool // total over current fault
	ChannelOCL bool // any per-channel over current limit
	OVP        bool // over voltage fault
	UVP        bool // under voltage fault

	// PhaseOCL holds the per-phase over current limit flags, index 0 is
	// phase 1.
	PhaseOCL [8]bool

	// OperatingPhases is the running phase count reported alongside the
	// fault bits, 0 when not monitored.
	OperatingPhases int

	// ActivePhases is the number of enabled phase channels, counted from
	// the phase-status bitmask on parts that expose one.
	ActivePhases int

	// PMBus warning and auxiliary fault flags.
	OVPWarning       bool
	UVPWarning       bool
	OCPWarning       bool
	OTPWarning       bool
	VinUVLO          bool
	PowerGoodNeg     bool // power good deasserted
	DriverFault      bool
	UnpopulatedPhase bool
	ExternalOTP      bool
}
