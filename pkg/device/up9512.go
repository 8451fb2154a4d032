package device

import (
	"fmt"

	"github.com/Giovanni-Lovison/VCore/pkg/wire"
)

// NameUP9512 is the device-type name the bridge reports for this part.
const NameUP9512 = "uP9512"

// uP9512 scaling constants.
const (
	up9512VoltLSB   = 0.01   // 10mV per step
	up9512CurrLSB   = 0.01   // 10mV per step across the shunt
	up9512TempLSB   = 0.008  // 8mV per step
	up9512ShuntOhms = 0.003  // 3mOhm
	up9512TempSens  = 0.0127 // V per degree C
)

// uP9512 register map.
const (
	up9512RegVout    = 0x2D // output voltage ADC
	up9512RegIout    = 0x2C // output current ADC
	up9512RegTemp    = 0x2E // temperature ADC
	up9512RegIoutAvg = 0x3D // averaged output current

	up9512RegPhase01 = 0x07 // LCS0/LCS1 phase control
	up9512RegPhase23 = 0x08 // LCS2/LCS3 phase control
	up9512RegPhase4  = 0x09 // LCS4 phase control

	up9512RegProtInd2 = 0x35 // per-phase OCL status
	up9512RegProtInd  = 0x3B // global protection status + phase monitor
	up9512RegMisc1    = 0x3C // protection enables
	up9512RegTotalOCP = 0x23 // total OCP threshold
	up9512RegVRShdn   = 0x25 // thermal shutdown threshold

	up9512RegCBCtrl = 0x12 // current balance control
)

// up9512OCPPercent maps the 3-bit threshold code in TOTAL_OCP to a
// percentage of rated current. Codes outside the table fall back to 100.
var up9512OCPPercent = map[int]int{
	0b000: 100,
	0b001: 110,
	0b010: 120,
	0b011: 130,
	0b100: 140,
	0b101: 150,
	0b110: 160,
	0b111: 170,
}

// up9512PhaseCount maps the 3-bit OP_PH_MON code to a running phase count.
// Codes outside the table decode to 0.
var up9512PhaseCount = map[int]int{
	0b000: 1,
	0b001: 2,
	0b010: 3,
	0b011: 4,
	0b100: 5,
	0b101: 6,
	0b110: 7,
	0b111: 8,
}

// UP9512 decodes the uP9512 multi-phase controller. It is the only
// supported part with per-protection enable bits: measurement snapshots
// report a fault flag only when the matching enable in MISC1 is set.
type UP9512 struct {
	rw   RegisterAccess
	addr uint8
}

// UP9512ProtectionConfig mirrors the enable bits in MISC1.
type UP9512ProtectionConfig struct {
	TotalOCPEnabled   bool
	ChannelOCLEnabled bool
	OVPEnabled        bool
	UVPEnabled        bool
}

// UP9512PhaseConfig holds the configured phase count per load current
// setting group.
type UP9512PhaseConfig struct {
	LCS0 int
	LCS1 int
	LCS2 int
	LCS3 int
	LCS4 int
}

// UP9512Thresholds holds the configured protection thresholds.
type UP9512Thresholds struct {
	TotalOCPPercent   int
	ThermalShutdownMV int
}

// NewUP9512 builds a decoder for the part at addr.
func NewUP9512(rw RegisterAccess, addr uint8) *UP9512 {
	return &UP9512{rw: rw, addr: addr}
}

func (d *UP9512) DeviceName() string { return NameUP9512 }

func (d *UP9512) Addr() uint8 { return d.addr }

// Measurements reads the full measurement and protection block in one
// transaction. Protection flags are gated by the MISC1 enables; OTP has no
// enable bit and is always reported.
func (d *UP9512) Measurements() Measurements {
	values, err := d.rw.ReadRegisters([]uint8{
		up9512RegProtInd2,
		up9512RegProtInd,
		up9512RegVout,
		up9512RegIout,
		up9512RegTemp,
		up9512RegVRShdn,
		up9512RegIoutAvg,
		up9512RegMisc1,
	})
	if err != nil || len(values) < 8 {
		return Measurements{}
	}

	protInd2 := values[0]
	protInd := values[1]
	misc1 := values[7]

	voltage := float64(values[2]) * up9512VoltLSB
	current := float64(values[3]) * up9512CurrLSB / up9512ShuntOhms
	avgCurrent := float64(values[6]) * up9512CurrLSB / up9512ShuntOhms

	prot := Protections{
		Valid:           true,
		OTP:             protInd&0x80 != 0,
		OperatingPhases: up9512PhaseCount[protInd&0x07],
	}
	if misc1&0x08 != 0 {
		prot.TotalOCP = protInd&0x40 != 0
	}
	if misc1&0x04 != 0 {
		prot.ChannelOCL = protInd&0x20 != 0
		for i := 0; i < 8; i++ {
			prot.PhaseOCL[i] = protInd2&(1<<i) != 0
		}
	}
	if misc1&0x02 != 0 {
		prot.OVP = protInd&0x10 != 0
	}
	if misc1&0x01 != 0 {
		prot.UVP = protInd&0x08 != 0
	}

	return Measurements{
		Valid:           true,
		Voltage:         voltage,
		Current:         current,
		AvgCurrent:      avgCurrent,
		Power:           avgCurrent * voltage,
		Temperature:     float64(values[4]) * up9512TempLSB / up9512TempSens,
		VRShutdown:      float64(values[5]) * up9512TempLSB,
		OperatingPhases: prot.OperatingPhases,
		Protections:     prot,
	}
}

// ProtectionStatus reads the raw protection indicators, ungated by the
// MISC1 enables.
func (d *UP9512) ProtectionStatus() Protections {
	values, err := d.rw.ReadRegisters([]uint8{up9512RegProtInd, up9512RegProtInd2})
	if err != nil || len(values) < 2 {
		return Protections{}
	}

	protInd := values[0]
	protInd2 := values[1]

	prot := Protections{
		Valid:           true,
		OTP:             protInd&0x80 != 0,
		TotalOCP:        protInd&0x40 != 0,
		ChannelOCL:      protInd&0x20 != 0,
		OVP:             protInd&0x10 != 0,
		UVP:             protInd&0x08 != 0,
		OperatingPhases: up9512PhaseCount[protInd&0x07],
	}
	for i := 0; i < 8; i++ {
		prot.PhaseOCL[i] = protInd2&(1<<i) != 0
	}
	return prot
}

// ProtectionConfig reads the MISC1 enable bits.
func (d *UP9512) ProtectionConfig() (UP9512ProtectionConfig, error) {
	values, err := d.rw.ReadRegisters([]uint8{up9512RegMisc1})
	if err != nil {
		return UP9512ProtectionConfig{}, err
	}
	if len(values) < 1 {
		return UP9512ProtectionConfig{}, fmt.Errorf("short read for MISC1")
	}

	misc1 := values[0]
	return UP9512ProtectionConfig{
		TotalOCPEnabled:   misc1&0x08 != 0,
		ChannelOCLEnabled: misc1&0x04 != 0,
		OVPEnabled:        misc1&0x02 != 0,
		UVPEnabled:        misc1&0x01 != 0,
	}, nil
}

// PhaseConfig reads the configured phase count for each load current
// setting group. Each group is a 3-bit code, count = code + 1.
func (d *UP9512) PhaseConfig() (UP9512PhaseConfig, error) {
	values, err := d.rw.ReadRegisters([]uint8{up9512RegPhase01, up9512RegPhase23, up9512RegPhase4})
	if err != nil {
		return UP9512PhaseConfig{}, err
	}
	if len(values) < 3 {
		return UP9512PhaseConfig{}, fmt.Errorf("short read for phase control")
	}

	return UP9512PhaseConfig{
		LCS0: (values[0]>>4)&0x07 + 1,
		LCS1: values[0]&0x07 + 1,
		LCS2: (values[1]>>4)&0x07 + 1,
		LCS3: values[1]&0x07 + 1,
		LCS4: (values[2]>>4)&0x07 + 1,
	}, nil
}

// ProtectionThresholds reads the configured OCP and thermal shutdown
// thresholds.
func (d *UP9512) ProtectionThresholds() (UP9512Thresholds, error) {
	values, err := d.rw.ReadRegisters([]uint8{up9512RegTotalOCP, up9512RegVRShdn})
	if err != nil {
		return UP9512Thresholds{}, err
	}
	if len(values) < 2 {
		return UP9512Thresholds{}, fmt.Errorf("short read for thresholds")
	}

	percent, ok := up9512OCPPercent[values[0]&0x07]
	if !ok {
		percent = 100
	}
	return UP9512Thresholds{
		TotalOCPPercent:   percent,
		ThermalShutdownMV: values[1] * 8, // 8mV per step
	}, nil
}

// CurrentBalanceEnabled reads the current balance enable bit.
func (d *UP9512) CurrentBalanceEnabled() (bool, error) {
	values, err := d.rw.ReadRegisters([]uint8{up9512RegCBCtrl})
	if err != nil {
		return false, err
	}
	if len(values) < 1 {
		return false, fmt.Errorf("short read for CB control")
	}
	return values[0]&0x80 != 0, nil
}

// SetTotalOCPThreshold writes the total OCP threshold. Accepted values are
// the table percentages 100 through 170 in steps of 10.
func (d *UP9512) SetTotalOCPThreshold(percent int) error {
	code := -1
	for c, p := range up9512OCPPercent {
		if p == percent {
			code = c
			break
		}
	}
	if code < 0 {
		return fmt.Errorf("unsupported OCP threshold %d%%", percent)
	}
	return d.rw.WriteRegisters([]wire.RegisterWrite{
		{Reg: up9512RegTotalOCP, Value: code},
	})
}
