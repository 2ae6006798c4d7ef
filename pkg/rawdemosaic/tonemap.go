package rawdemosaic

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ToneMapMode selects how the corrected linear range is normalized.
type ToneMapMode int

const (
	// ToneMapFixedRange divides by the sensor range above black level.
	ToneMapFixedRange ToneMapMode = iota
	// ToneMapAutoStretch maps the pooled 1st..99th percentile onto [0, 1].
	ToneMapAutoStretch
)

func (m ToneMapMode) String() string {
	switch m {
	case ToneMapFixedRange:
		return "fixed-range"
	case ToneMapAutoStretch:
		return "auto-stretch"
	default:
		return "unknown"
	}
}

// ParseToneMapMode parses "fixed-range" or "auto-stretch".
func ParseToneMapMode(s string) (ToneMapMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed-range", "fixed":
		return ToneMapFixedRange, nil
	case "auto-stretch", "auto", "stretch":
		return ToneMapAutoStretch, nil
	default:
		return 0, fmt.Errorf("%w: unknown tone map mode %q", ErrInvalidConfiguration, s)
	}
}

func (m ToneMapMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ToneMapMode) UnmarshalText(text []byte) error {
	v, err := ParseToneMapMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

const (
	// MaxSensorCode12 is the largest code of a 12-bit sensor.
	MaxSensorCode12 = 4095

	stretchLowPercentile  = 1
	stretchHighPercentile = 99
	stretchEpsilon        = 1e-6
)

// ToneMapParams controls normalization, gamma and output encoding.
type ToneMapParams struct {
	Mode          ToneMapMode
	Gamma         float64
	MaxSensorCode int
	BlackLevel    int
	BitDepth      int
}

// sensorRange is the linear span of corrected values in fixed-range mode.
func (p ToneMapParams) sensorRange() float64 {
	return float64(p.MaxSensorCode - p.BlackLevel)
}

func (p ToneMapParams) validate() error {
	if p.MaxSensorCode <= p.BlackLevel {
		return fmt.Errorf("%w: max sensor code %d must exceed black level %d", ErrInvalidParameter, p.MaxSensorCode, p.BlackLevel)
	}
	if !(p.Gamma > 0) || math.IsInf(p.Gamma, 0) {
		return fmt.Errorf("%w: gamma %v must be positive", ErrInvalidParameter, p.Gamma)
	}
	if p.BitDepth != 8 && p.BitDepth != 16 {
		return fmt.Errorf("%w: output bit depth %d, want 8 or 16", ErrInvalidParameter, p.BitDepth)
	}
	return nil
}

// StretchBounds returns the pooled 1st and 99th percentile of img.
func StretchBounds(img RGBImage) (lo, hi float64, err error) {
	if img.Width*img.Height == 0 {
		return 0, 0, ErrEmptyImage
	}
	sorted := make([]float64, len(img.Pix))
	copy(sorted, img.Pix)
	sort.Float64s(sorted)
	return percentileSorted(sorted, stretchLowPercentile), percentileSorted(sorted, stretchHighPercentile), nil
}

// NormalizeRange maps corrected linear values onto [0, 1].
func NormalizeRange(img RGBImage, p ToneMapParams) (RGBImage, error) {
	if img.Width*img.Height == 0 {
		return RGBImage{}, ErrEmptyImage
	}
	var offset, span float64
	switch p.Mode {
	case ToneMapFixedRange:
		offset, span = 0, p.sensorRange()
	case ToneMapAutoStretch:
		lo, hi, err := StretchBounds(img)
		if err != nil {
			return RGBImage{}, err
		}
		offset, span = lo, hi-lo+stretchEpsilon
	default:
		return RGBImage{}, fmt.Errorf("%w: unknown tone map mode %d", ErrInvalidConfiguration, int(p.Mode))
	}
	out := NewRGBImage(img.Width, img.Height)
	for i, v := range img.Pix {
		out.Pix[i] = clamp01((v - offset) / span)
	}
	return out, nil
}

// ApplyGamma encodes normalized values as v^(1/gamma). Gamma 1 is a copy.
func ApplyGamma(img RGBImage, gamma float64) RGBImage {
	out := NewRGBImage(img.Width, img.Height)
	if gamma == 1 {
		copy(out.Pix, img.Pix)
		return out
	}
	inv := 1 / gamma
	for i, v := range img.Pix {
		out.Pix[i] = math.Pow(v, inv)
	}
	return out
}

// ToneMap normalizes, gamma-encodes and quantizes a corrected image.
//
// Both bit depths quantize the normalized, gamma-encoded value v by
// truncation: v*255 or v*65535. With fixed-range mode and gamma 1 the
// 16-bit output is the linear sensor scale, clamp01(c/(max-black))*65535.
func ToneMap(img RGBImage, p ToneMapParams) (OutputImage, error) {
	if err := p.validate(); err != nil {
		return OutputImage{}, err
	}
	norm, err := NormalizeRange(img, p)
	if err != nil {
		return OutputImage{}, err
	}
	encoded := ApplyGamma(norm, p.Gamma)

	out := OutputImage{Width: img.Width, Height: img.Height, BitDepth: p.BitDepth}
	switch p.BitDepth {
	case 8:
		out.Pix8 = make([]uint8, len(encoded.Pix))
		for i, v := range encoded.Pix {
			out.Pix8[i] = uint8(v * 255)
		}
	case 16:
		out.Pix16 = make([]uint16, len(encoded.Pix))
		for i, v := range encoded.Pix {
			out.Pix16[i] = uint16(v * 65535)
		}
	}
	return out, nil
}
