package device

// NameIR35201 is the device-type name the bridge reports for this part.
const NameIR35201 = "IR35201"

// IR35201 PMBus command map.
const (
	ir35201RegVout  = 0x8B // READ_VOUT, 15.6mV per step
	ir35201RegIout  = 0x8C // READ_IOUT, 1A per step
	ir35201RegPout  = 0x96 // READ_POUT, 0.5W per step
	ir35201RegTemp1 = 0x8D // READ_TEMPERATURE_1, 1 degree C per step

	ir35201RegStatusByte = 0x78
	ir35201RegStatusWord = 0x79
	ir35201RegStatusVout = 0x7A
	ir35201RegStatusIout = 0x7B
	ir35201RegStatusTemp = 0x7D
	ir35201RegStatusMfr  = 0x80
)

// IR35201 decodes the IR35201 dual-loop PMBus controller. Unlike the ADC
// parts, its read registers report directly in physical units with coarse
// per-command resolution.
type IR35201 struct {
	rw   RegisterAccess
	addr uint8
}

// NewIR35201 builds a decoder for the part at addr.
func NewIR35201(rw RegisterAccess, addr uint8) *IR35201 {
	return &IR35201{rw: rw, addr: addr}
}

func (d *IR35201) DeviceName() string { return NameIR35201 }

func (d *IR35201) Addr() uint8 { return d.addr }

// Measurements reads the PMBus telemetry commands in one transaction.
func (d *IR35201) Measurements() Measurements {
	values, err := d.rw.ReadRegisters([]uint8{
		ir35201RegVout,
		ir35201RegIout,
		ir35201RegPout,
		ir35201RegTemp1,
	})
	if err != nil || len(values) < 4 {
		return Measurements{}
	}

	return Measurements{
		Valid:       true,
		Voltage:     float64(values[0]) * 0.0156,
		Current:     float64(values[1]),
		Power:       float64(values[2]) * 0.5,
		Temperature: float64(values[3]),
	}
}

// ProtectionStatus reads the PMBus status commands in one transaction. A
// fault reported in a page status register or in the summary STATUS_BYTE
// counts either way.
func (d *IR35201) ProtectionStatus() Protections {
	values, err := d.rw.ReadRegisters([]uint8{
		ir35201RegStatusByte,
		ir35201RegStatusWord,
		ir35201RegStatusVout,
		ir35201RegStatusIout,
		ir35201RegStatusTemp,
		ir35201RegStatusMfr,
	})
	if err != nil || len(values) < 6 {
		return Protections{}
	}

	sByte := values[0]
	sWordHigh := (values[1] >> 8) & 0xFF
	sVout := values[2]
	sIout := values[3]
	sTemp := values[4]
	sMfr := values[5]

	return Protections{
		Valid: true,

		OVP:      sVout&0x80 != 0 || sByte&0x20 != 0,
		UVP:      sVout&0x10 != 0,
		TotalOCP: sIout&0x80 != 0 || sByte&0x10 != 0,
		OTP:      sTemp&0x80 != 0 || sByte&0x04 != 0,

		OVPWarning: sVout&0x40 != 0,
		UVPWarning: sVout&0x20 != 0,
		OCPWarning: sIout&0x20 != 0,
		OTPWarning: sTemp&0x40 != 0,

		VinUVLO:      sByte&0x08 != 0,
		PowerGoodNeg: sWordHigh&0x08 == 0,

		DriverFault:      sMfr&0x04 != 0,
		UnpopulatedPhase: sMfr&0x02 != 0,
		ExternalOTP:      sMfr&0x01 != 0,
	}
}
