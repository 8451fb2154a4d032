package device

import (
	"fmt"
	"math/bits"
)

// NameNCP4206 is the device-type name the bridge reports for this part.
const NameNCP4206 = "NCP4206"

// NCP4206 register map. The part speaks PMBus but the ADC mirror registers
// give finer resolution, so measurements come from those.
const (
	ncp4206RegVoutADC = 0x2D // output voltage ADC, 10mV per step
	ncp4206RegIoutADC = 0x2C // output current ADC, 10mV per step
	ncp4206RegIoutAvg = 0x3D // averaged output current
	ncp4206RegTemp    = 0x2E // temperature ADC, 8mV per step

	ncp4206RegProtInd  = 0x3B // global protection status
	ncp4206RegProtInd2 = 0x35 // per-phase OCL status
	ncp4206RegPhase    = 0xFC // phase enable bitmask, bits 0-5
)

// NCP4206 decodes the NCP4206 multi-phase controller.
type NCP4206 struct {
	rw   RegisterAccess
	addr uint8
}

// NewNCP4206 builds a decoder for the part at addr.
func NewNCP4206(rw RegisterAccess, addr uint8) *NCP4206 {
	return &NCP4206{rw: rw, addr: addr}
}

func (d *NCP4206) DeviceName() string { return NameNCP4206 }

func (d *NCP4206) Addr() uint8 { return d.addr }

// Measurements reads the ADC mirror registers in one transaction. The part
// has no power register; power is voltage times current.
func (d *NCP4206) Measurements() Measurements {
	values, err := d.rw.ReadRegisters([]uint8{
		ncp4206RegVoutADC,
		ncp4206RegIoutADC,
		ncp4206RegIoutAvg,
		ncp4206RegTemp,
	})
	if err != nil || len(values) < 4 {
		return Measurements{}
	}

	voltage := float64(values[0]) * 0.01
	current := float64(values[1]) * 0.01

	return Measurements{
		Valid:       true,
		Voltage:     voltage,
		Current:     current,
		AvgCurrent:  float64(values[2]) * 0.01,
		Power:       voltage * current,
		Temperature: float64(values[3]) * 0.008,
	}
}

// ProtectionStatus reads the protection indicators and the phase enable
// mask in one transaction. Active phases are the set bits 0 through 5 of
// the phase-status register.
func (d *NCP4206) ProtectionStatus() Protections {
	values, err := d.rw.ReadRegisters([]uint8{
		ncp4206RegProtInd,
		ncp4206RegProtInd2,
		ncp4206RegPhase,
	})
	if err != nil || len(values) < 3 {
		return Protections{}
	}

	protInd := values[0]
	protInd2 := values[1]

	prot := Protections{
		Valid:        true,
		OTP:          protInd&0x80 != 0,
		TotalOCP:     protInd&0x40 != 0,
		ChannelOCL:   protInd&0x20 != 0,
		OVP:          protInd&0x10 != 0,
		UVP:          protInd&0x08 != 0,
		ActivePhases: bits.OnesCount8(uint8(values[2]) & 0x3F),
	}
	for i := 0; i < 8; i++ {
		prot.PhaseOCL[i] = protInd2&(1<<i) != 0
	}
	return prot
}

// PhaseCount reads the phase enable mask alone and returns the number of
// enabled phase channels.
func (d *NCP4206) PhaseCount() (int, error) {
	values, err := d.rw.ReadRegisters([]uint8{ncp4206RegPhase})
	if err != nil {
		return 0, err
	}
	if len(values) < 1 {
		return 0, fmt.Errorf("short read for phase status")
	}
	return bits.OnesCount8(uint8(values[0]) & 0x3F), nil
}
