package device

import (
	"errors"
	"math"
	"testing"

	"github.com/Giovanni-Lovison/VCore/pkg/wire"
)

// fakeAccess serves reads from a register/value map and records writes.
type fakeAccess struct {
	values   map[uint8]int
	err      error
	truncate int // if > 0, return at most this many values

	lastReads []uint8
	writes    []wire.RegisterWrite
}

func (f *fakeAccess) ReadRegisters(regs []uint8) ([]int, error) {
	f.lastReads = append([]uint8(nil), regs...)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]int, 0, len(regs))
	for _, reg := range regs {
		out = append(out, f.values[reg])
	}
	if f.truncate > 0 && len(out) > f.truncate {
		out = out[:f.truncate]
	}
	return out, nil
}

func (f *fakeAccess) WriteRegisters(writes []wire.RegisterWrite) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, writes...)
	return nil
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

var errLink = errors.New("link down")
