package rawdemosaic

import (
	"errors"
	"fmt"
	"testing"
)

// TestResizeBilinearIdentity verifies that resizing to the same size reproduces the plane.
func TestResizeBilinearIdentity(t *testing.T) {
	p := Plane{Width: 3, Height: 2, Pix: []float64{1, 5, 2, 8, 3, 9}}
	got := ResizeBilinear(p, 3, 2)
	for i := range p.Pix {
		assertClose(t, fmt.Sprintf("pixel %d", i), got.Pix[i], p.Pix[i])
	}
}

// TestResizeBilinearEndpoints verifies the corners land on the source corners.
func TestResizeBilinearEndpoints(t *testing.T) {
	p := Plane{Width: 2, Height: 2, Pix: []float64{0, 30, 60, 90}}
	got := ResizeBilinear(p, 4, 4)
	assertClose(t, "top-left", got.At(0, 0), 0)
	assertClose(t, "top-right", got.At(0, 3), 30)
	assertClose(t, "bottom-left", got.At(3, 0), 60)
	assertClose(t, "bottom-right", got.At(3, 3), 90)
	assertClose(t, "(1,1)", got.At(1, 1), 30)
	assertClose(t, "(2,1)", got.At(2, 1), 50)
}

// TestBilinearReference checks the reference capture against hand-computed values.
func TestBilinearReference(t *testing.T) {
	planes, err := Interpolate(StrategyBilinear, newMosaic(4, 4, mosaic4x4), BGGR, 0, MaxSensorCode12, BorderReflect)
	if err != nil {
		t.Fatalf("Interpolate failed: %v", err)
	}
	if planes.Width() != 4 || planes.Height() != 4 {
		t.Fatalf("Expected 4x4 planes, got %dx%d", planes.Width(), planes.Height())
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			ramp := (200*float64(j) + 800*float64(i)) / 3
			assertClose(t, fmt.Sprintf("R(%d,%d)", i, j), planes.R.At(i, j), 600+ramp)
			assertClose(t, fmt.Sprintf("G(%d,%d)", i, j), planes.G.At(i, j), 350+ramp)
			assertClose(t, fmt.Sprintf("B(%d,%d)", i, j), planes.B.At(i, j), 100+ramp)
		}
	}
}

// TestBilinearSubtractsBlackBeforeBlending verifies clamping happens on raw samples.
func TestBilinearSubtractsBlackBeforeBlending(t *testing.T) {
	m := newMosaic(4, 4, []uint16{
		0, 0, 0, 0,
		0, 100, 0, 500,
		0, 0, 0, 0,
		0, 500, 0, 100,
	})
	planes, err := Interpolate(StrategyBilinear, m, BGGR, 300, MaxSensorCode12, BorderReflect)
	if err != nil {
		t.Fatalf("Interpolate failed: %v", err)
	}
	// R grid after black level is [[0,200],[200,0]]
	assertClose(t, "R(0,0)", planes.R.At(0, 0), 0)
	assertClose(t, "R(0,3)", planes.R.At(0, 3), 200)
	assertPlaneUniform(t, "G", planes.G, 0)
	assertPlaneUniform(t, "B", planes.B, 0)
}

// TestWeightedConvolutionReference checks the reference capture against
// hand-computed values with the reflect border.
func TestWeightedConvolutionReference(t *testing.T) {
	planes, err := Interpolate(StrategyWeightedConvolution, newMosaic(4, 4, mosaic4x4), BGGR, 0, MaxSensorCode12, BorderReflect)
	if err != nil {
		t.Fatalf("Interpolate failed: %v", err)
	}
	tests := []struct {
		name string
		p    Plane
		r, c int
		want float64
	}{
		{"R at red site", planes.R, 1, 1, 600},
		{"R between two reds", planes.R, 1, 2, 700},
		{"R between four reds", planes.R, 2, 2, 1100},
		{"R at corner", planes.R, 0, 0, 600},
		{"G at corner", planes.G, 0, 0, 350},
		{"G at red site", planes.G, 1, 1, 600},
		{"B at corner", planes.B, 3, 3, 1100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertClose(t, tt.name, tt.p.At(tt.r, tt.c), tt.want)
		})
	}
}

// TestWeightedConvolutionKeepsSamples verifies every measured sample
// survives unchanged in its own channel.
func TestWeightedConvolutionKeepsSamples(t *testing.T) {
	for _, p := range []BayerPattern{BGGR, RGGB, GBRG, GRBG} {
		t.Run(string(p), func(t *testing.T) {
			m := newMosaic(4, 4, mosaic4x4)
			planes, err := Interpolate(StrategyWeightedConvolution, m, p, 0, MaxSensorCode12, BorderReflect)
			if err != nil {
				t.Fatalf("Interpolate failed: %v", err)
			}
			layout, _ := p.Layout()
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					var got float64
					switch layout.Color(y, x) {
					case 'R':
						got = planes.R.At(y, x)
					case 'B':
						got = planes.B.At(y, x)
					default:
						got = planes.G.At(y, x)
					}
					assertClose(t, fmt.Sprintf("(%d,%d)", y, x), got, float64(m.At(y, x)))
				}
			}
		})
	}
}

// TestWeightedConvolutionFlatGreen verifies a constant green field with
// empty red and blue sites reconstructs as flat green.
func TestWeightedConvolutionFlatGreen(t *testing.T) {
	layout, _ := BGGR.Layout()
	m := NewMosaicPlane(8, 6)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if layout.Color(y, x) == 'G' {
				m.Pix[y*m.Width+x] = 1000
			}
		}
	}
	planes, err := Interpolate(StrategyWeightedConvolution, m, BGGR, 0, MaxSensorCode12, BorderReflect)
	if err != nil {
		t.Fatalf("Interpolate failed: %v", err)
	}
	for y := 1; y < m.Height-1; y++ {
		for x := 1; x < m.Width-1; x++ {
			assertClose(t, fmt.Sprintf("G(%d,%d)", y, x), planes.G.At(y, x), 1000)
			assertClose(t, fmt.Sprintf("R(%d,%d)", y, x), planes.R.At(y, x), 0)
		}
	}
}

// TestConstantMosaicReconstruction verifies both strategies reproduce a flat field.
func TestConstantMosaicReconstruction(t *testing.T) {
	for _, s := range []Strategy{StrategyBilinear, StrategyWeightedConvolution} {
		for _, mode := range []BorderMode{BorderReflect, BorderReflect101, BorderReplicate} {
			t.Run(s.String()+"/"+mode.String(), func(t *testing.T) {
				planes, err := Interpolate(s, uniformMosaic(6, 4, 2000), RGGB, 256, MaxSensorCode12, mode)
				if err != nil {
					t.Fatalf("Interpolate failed: %v", err)
				}
				assertPlaneUniform(t, "R", planes.R, 1744)
				assertPlaneUniform(t, "G", planes.G, 1744)
				assertPlaneUniform(t, "B", planes.B, 1744)
			})
		}
	}
}

func TestInterpolateTruncatesOddMosaic(t *testing.T) {
	for _, s := range []Strategy{StrategyBilinear, StrategyWeightedConvolution} {
		planes, err := Interpolate(s, uniformMosaic(7, 5, 10), BGGR, 0, MaxSensorCode12, BorderReflect)
		if err != nil {
			t.Fatalf("%s: Interpolate failed: %v", s, err)
		}
		if planes.Width() != 6 || planes.Height() != 4 {
			t.Errorf("%s: expected 6x4 planes, got %dx%d", s, planes.Width(), planes.Height())
		}
	}
}

func TestInterpolateErrors(t *testing.T) {
	if _, err := Interpolate(Strategy(7), uniformMosaic(4, 4, 0), BGGR, 0, MaxSensorCode12, BorderReflect); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := Interpolate(StrategyWeightedConvolution, uniformMosaic(4, 4, 0), "RRGB", 0, MaxSensorCode12, BorderReflect); !errors.Is(err, ErrInvalidChannelCount) {
		t.Errorf("Expected ErrInvalidChannelCount, got %v", err)
	}
	if _, err := Interpolate(StrategyWeightedConvolution, uniformMosaic(1, 1, 0), BGGR, 0, MaxSensorCode12, BorderReflect); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
}

// TestInterpolateRejectsShortMosaic verifies a mosaic with fewer samples than
// its size fails for every strategy instead of reading past the buffer.
func TestInterpolateRejectsShortMosaic(t *testing.T) {
	short := MosaicPlane{Width: 4, Height: 4, Pix: make([]uint16, 3)}
	for _, s := range []Strategy{StrategyBilinear, StrategyWeightedConvolution, StrategyOpenCV} {
		t.Run(s.String(), func(t *testing.T) {
			if _, err := Interpolate(s, short, BGGR, 0, MaxSensorCode12, BorderReflect); !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("Expected ErrInvalidFrame, got %v", err)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{
		"bilinear":             StrategyBilinear,
		"Weighted-Convolution": StrategyWeightedConvolution,
		"opencv":               StrategyOpenCV,
		"library":              StrategyOpenCV,
	} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseStrategy("nearest"); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
	}
}
