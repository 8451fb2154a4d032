package device

import (
	"testing"
)

func TestNCP4206Measurements(t *testing.T) {
	fake := &fakeAccess{values: map[uint8]int{
		0x2D: 120, // 1.20V at 0.01 V/step
		0x2C: 85,  // 0.85A
		0x3D: 80,  // 0.80A averaged
		0x2E: 100, // 0.8V at the sensor
	}}
	d := NewNCP4206(fake, 0x40)

	m := d.Measurements()
	if !m.Valid {
		t.Fatal("snapshot not valid")
	}
	approx(t, "Voltage", m.Voltage, 1.20)
	approx(t, "Current", m.Current, 0.85)
	approx(t, "AvgCurrent", m.AvgCurrent, 0.80)
	approx(t, "Power", m.Power, 1.20*0.85)
	approx(t, "Temperature", m.Temperature, 100*0.008)

	if len(fake.lastReads) != 4 {
		t.Errorf("bulk read covered %d registers, want 4", len(fake.lastReads))
	}
}

func TestNCP4206ProtectionStatus(t *testing.T) {
	fake := &fakeAccess{values: map[uint8]int{
		0x3B: 0x88,       // OTP + UVP
		0x35: 0b01000010, // phases 2 and 7 in OCL
		0xFC: 0b00010110, // phases 2, 3, 5 enabled
	}}
	d := NewNCP4206(fake, 0x40)

	p := d.ProtectionStatus()
	if !p.Valid {
		t.Fatal("snapshot not valid")
	}
	if !p.OTP || !p.UVP || p.TotalOCP || p.ChannelOCL || p.OVP {
		t.Errorf("flags = %+v", p)
	}
	if !p.PhaseOCL[1] || !p.PhaseOCL[6] || p.PhaseOCL[0] {
		t.Errorf("PhaseOCL = %v", p.PhaseOCL)
	}
	if p.ActivePhases != 3 {
		t.Errorf("ActivePhases = %d, want 3", p.ActivePhases)
	}

	if len(fake.lastReads) != 3 {
		t.Errorf("bulk read covered %d registers, want 3", len(fake.lastReads))
	}
}

func TestNCP4206PhaseCount(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{0b00000000, 0},
		{0b00010110, 3},
		{0b00111111, 6},
		{0b11111111, 6}, // bits 6 and 7 are not phase channels
	}

	for _, tc := range tests {
		d := NewNCP4206(&fakeAccess{values: map[uint8]int{0xFC: tc.raw}}, 0x40)
		got, err := d.PhaseCount()
		if err != nil {
			t.Fatalf("PhaseCount(%#08b) failed: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Errorf("PhaseCount(%#08b) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestNCP4206FailedReadInvalidSnapshot(t *testing.T) {
	d := NewNCP4206(&fakeAccess{err: errLink}, 0x40)
	if m := d.Measurements(); m.Valid {
		t.Error("failed read produced a valid snapshot")
	}
	if p := d.ProtectionStatus(); p.Valid {
		t.Error("failed read produced a valid protection snapshot")
	}

	d = NewNCP4206(&fakeAccess{values: map[uint8]int{}, truncate: 2}, 0x40)
	if m := d.Measurements(); m.Valid {
		t.Error("short read produced a valid snapshot")
	}
}
