package rawdemosaic

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Strategy selects how sparse color samples are turned into full planes.
type Strategy int

const (
	// StrategyBilinear upsamples each half-resolution grid on its own.
	StrategyBilinear Strategy = iota
	// StrategyWeightedConvolution runs a mask-normalized 3x3 convolution
	// over the full-resolution mosaic.
	StrategyWeightedConvolution
	// StrategyOpenCV hands the mosaic to OpenCV's Bayer to RGB conversion.
	// Only available with the opencv backend.
	StrategyOpenCV
)

func (s Strategy) String() string {
	switch s {
	case StrategyBilinear:
		return "bilinear"
	case StrategyWeightedConvolution:
		return "weighted-convolution"
	case StrategyOpenCV:
		return "opencv"
	default:
		return "unknown"
	}
}

// ParseStrategy parses "bilinear", "weighted-convolution" or "opencv".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bilinear":
		return StrategyBilinear, nil
	case "weighted-convolution", "weighted", "convolution":
		return StrategyWeightedConvolution, nil
	case "opencv", "library":
		return StrategyOpenCV, nil
	default:
		return 0, fmt.Errorf("%w: unknown interpolation strategy %q", ErrInvalidConfiguration, s)
	}
}

func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Kernel3 is a row-major 3x3 kernel.
type Kernel3 [9]float64

var (
	// DiamondKernel spreads red and blue samples to their 8 neighbours.
	DiamondKernel = Kernel3{
		1.0 / 4, 2.0 / 4, 1.0 / 4,
		2.0 / 4, 4.0 / 4, 2.0 / 4,
		1.0 / 4, 2.0 / 4, 1.0 / 4,
	}
	// PlusKernel spreads green samples to their 4 direct neighbours.
	PlusKernel = Kernel3{
		0, 1.0 / 4, 0,
		1.0 / 4, 4.0 / 4, 1.0 / 4,
		0, 1.0 / 4, 0,
	}
)

// minDensity keeps the normalization well defined where a kernel covers
// no sample of the channel.
const minDensity = 1e-10

// UpsampleBilinear resizes every grid to twice its size and averages the
// two green planes.
func UpsampleBilinear(g ChannelGrids) ChannelPlanes {
	width, height := g.R.Width*2, g.R.Height*2

	grids := [4]Plane{g.R, g.Gr, g.Gb, g.B}
	var up [4]Plane
	var wg sync.WaitGroup
	for i := range grids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			up[i] = ResizeBilinear(grids[i], width, height)
		}(i)
	}
	wg.Wait()

	green := NewPlane(width, height)
	for i := range green.Pix {
		green.Pix[i] = (up[1].Pix[i] + up[2].Pix[i]) / 2
	}
	return ChannelPlanes{R: up[0], G: green, B: up[3]}
}

// ColorMasks returns binary R, G and B site masks for a width x height
// mosaic. The G mask covers both green sites.
func ColorMasks(width, height int, layout TileLayout) (r, g, b Plane) {
	r, g, b = NewPlane(width, height), NewPlane(width, height), NewPlane(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			switch layout.Color(y, x) {
			case 'R':
				r.Pix[i] = 1
			case 'B':
				b.Pix[i] = 1
			default:
				g.Pix[i] = 1
			}
		}
	}
	return r, g, b
}

// normalizedConvolution computes conv(data*mask, k) / max(conv(mask, k), minDensity):
// a weighted average over the samples of one color that the kernel covers.
func normalizedConvolution(data, mask Plane, k Kernel3, mode BorderMode) Plane {
	masked := NewPlane(data.Width, data.Height)
	for i := range masked.Pix {
		masked.Pix[i] = data.Pix[i] * mask.Pix[i]
	}
	num := filter3x3(masked, k, mode)
	den := filter3x3(mask, k, mode)
	out := NewPlane(data.Width, data.Height)
	for i := range out.Pix {
		out.Pix[i] = num.Pix[i] / math.Max(den.Pix[i], minDensity)
	}
	return out
}

// WeightedConvolution reconstructs full planes from a black-level
// corrected mosaic, here given as a float plane. Only the even region of
// the mosaic is used.
func WeightedConvolution(mosaic Plane, p BayerPattern, mode BorderMode) (ChannelPlanes, error) {
	layout, err := p.Layout()
	if err != nil {
		return ChannelPlanes{}, err
	}
	width, height := mosaic.Width&^1, mosaic.Height&^1
	if width < 2 || height < 2 {
		return ChannelPlanes{}, fmt.Errorf("%w: mosaic %dx%d is smaller than one tile", ErrInvalidFrame, mosaic.Width, mosaic.Height)
	}
	data := cropPlane(mosaic, width, height)
	rMask, gMask, bMask := ColorMasks(width, height, layout)

	jobs := [3]struct {
		mask   Plane
		kernel Kernel3
	}{
		{rMask, DiamondKernel},
		{gMask, PlusKernel},
		{bMask, DiamondKernel},
	}
	var out [3]Plane
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = normalizedConvolution(data, jobs[i].mask, jobs[i].kernel, mode)
		}(i)
	}
	wg.Wait()
	return ChannelPlanes{R: out[0], G: out[1], B: out[2]}, nil
}

func cropPlane(p Plane, width, height int) Plane {
	if p.Width == width && p.Height == height {
		return p
	}
	out := NewPlane(width, height)
	for r := 0; r < height; r++ {
		copy(out.Pix[r*width:(r+1)*width], p.Pix[r*p.Width:r*p.Width+width])
	}
	return out
}

// Interpolate reconstructs full-resolution planes from a raw mosaic with
// the selected strategy. blackLevel is subtracted from the raw samples,
// clamped at zero, before any spatial blending. The planes are in sensor
// codes above black level; maxSensorCode is the white point used by
// StrategyOpenCV to fill the 16-bit range.
func Interpolate(s Strategy, m MosaicPlane, p BayerPattern, blackLevel, maxSensorCode int, mode BorderMode) (ChannelPlanes, error) {
	if m.Width <= 0 || m.Height <= 0 || len(m.Pix) < m.Width*m.Height {
		return ChannelPlanes{}, fmt.Errorf("%w: mosaic %dx%d with %d samples", ErrInvalidFrame, m.Width, m.Height, len(m.Pix))
	}
	switch s {
	case StrategyBilinear:
		grids, err := Sample(m, p)
		if err != nil {
			return ChannelPlanes{}, err
		}
		return UpsampleBilinear(grids.SubtractBlackLevel(blackLevel)), nil
	case StrategyWeightedConvolution:
		if _, err := p.Layout(); err != nil {
			return ChannelPlanes{}, err
		}
		return WeightedConvolution(SubtractBlackLevel(m, blackLevel), p, mode)
	case StrategyOpenCV:
		if _, err := p.Layout(); err != nil {
			return ChannelPlanes{}, err
		}
		if maxSensorCode <= blackLevel {
			return ChannelPlanes{}, fmt.Errorf("%w: max sensor code %d must exceed black level %d", ErrInvalidParameter, maxSensorCode, blackLevel)
		}
		return demosaicLibrary(m, p, blackLevel, maxSensorCode)
	default:
		return ChannelPlanes{}, fmt.Errorf("%w: unknown interpolation strategy %d", ErrInvalidConfiguration, int(s))
	}
}
