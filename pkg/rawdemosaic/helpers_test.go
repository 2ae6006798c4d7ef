package rawdemosaic

import (
	"math"
	"testing"
)

const tolerance = 1e-9

// mosaic4x4 is the reference BGGR capture used across the tests.
var mosaic4x4 = []uint16{
	100, 200, 300, 400,
	500, 600, 700, 800,
	900, 1000, 1100, 1200,
	1300, 1400, 1500, 1600,
}

// packed4x4 is mosaic4x4 in packed12 layout with a stride of 8 bytes; the
// two padding bytes per row are junk.
var packed4x4 = []byte{
	0x64, 0xC8, 0x00, 0x2C, 0x90, 0x11, 0xFF, 0xFF,
	0xF4, 0x58, 0x21, 0xBC, 0x20, 0x32, 0xFF, 0xFF,
	0x84, 0xE8, 0x33, 0x4C, 0xB0, 0x44, 0xFF, 0xFF,
	0x14, 0x78, 0x55, 0xDC, 0x40, 0x65, 0xFF, 0xFF,
}

func newMosaic(width, height int, pix []uint16) MosaicPlane {
	m := NewMosaicPlane(width, height)
	copy(m.Pix, pix)
	return m
}

func uniformMosaic(width, height int, v uint16) MosaicPlane {
	m := NewMosaicPlane(width, height)
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

func uniformPlane(width, height int, v float64) Plane {
	p := NewPlane(width, height)
	for i := range p.Pix {
		p.Pix[i] = v
	}
	return p
}

func assertClose(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s: expected %v, got %v", name, want, got)
	}
}

func assertPlaneUniform(t *testing.T, name string, p Plane, want float64) {
	t.Helper()
	for i, v := range p.Pix {
		if math.Abs(v-want) > tolerance {
			t.Fatalf("%s: expected %v everywhere, got %v at index %d", name, want, v, i)
		}
	}
}

// linearConfig is the linear profile with unity white balance.
func linearConfig() Config {
	cfg := DefaultConfig()
	cfg.WhiteBalance = [3]float64{1, 1, 1}
	return cfg
}
