package rawdemosaic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultWhiteBalance holds the R, G, B gains used when none are configured.
var DefaultWhiteBalance = [3]float64{1.9, 1.0, 1.4}

// ColorMatrix maps a camera RGB vector to output RGB: out = M · in.
type ColorMatrix [3][3]float64

// IdentityMatrix leaves colors unchanged.
var IdentityMatrix = ColorMatrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// NewColorMatrix validates a row-major 3x3 slice, as decoded from config.
func NewColorMatrix(rows [][]float64) (ColorMatrix, error) {
	var m ColorMatrix
	if len(rows) != 3 {
		return m, fmt.Errorf("%w: got %d rows", ErrInvalidColorMatrix, len(rows))
	}
	for i, row := range rows {
		if len(row) != 3 {
			return m, fmt.Errorf("%w: row %d has %d columns", ErrInvalidColorMatrix, i, len(row))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return m, fmt.Errorf("%w: element (%d,%d) is not finite", ErrInvalidColorMatrix, i, j)
			}
			m[i][j] = v
		}
	}
	return m, nil
}

func (m ColorMatrix) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

// SubtractBlackLevel converts a raw mosaic to floats with blackLevel
// removed, clamped at zero.
func SubtractBlackLevel(m MosaicPlane, blackLevel int) Plane {
	out := NewPlane(m.Width, m.Height)
	black := float64(blackLevel)
	for i, v := range m.Pix[:m.Width*m.Height] {
		out.Pix[i] = math.Max(float64(v)-black, 0)
	}
	return out
}

// SubtractBlackLevel returns new grids with blackLevel removed, clamped at zero.
func (g ChannelGrids) SubtractBlackLevel(blackLevel int) ChannelGrids {
	sub := func(p Plane) Plane {
		out := NewPlane(p.Width, p.Height)
		black := float64(blackLevel)
		for i, v := range p.Pix {
			out.Pix[i] = math.Max(v-black, 0)
		}
		return out
	}
	return ChannelGrids{R: sub(g.R), Gr: sub(g.Gr), Gb: sub(g.Gb), B: sub(g.B)}
}

// ApplyWhiteBalance scales each plane by its gain and interleaves the result.
func ApplyWhiteBalance(c ChannelPlanes, gains [3]float64) (RGBImage, error) {
	width, height := c.Width(), c.Height()
	for i, p := range []Plane{c.G, c.B} {
		if p.Width != width || p.Height != height {
			return RGBImage{}, fmt.Errorf("%w: channel %d is %dx%d, want %dx%d",
				ErrInputValidation, i+1, p.Width, p.Height, width, height)
		}
	}
	out := NewRGBImage(width, height)
	for i := 0; i < width*height; i++ {
		out.Pix[i*3] = c.R.Pix[i] * gains[0]
		out.Pix[i*3+1] = c.G.Pix[i] * gains[1]
		out.Pix[i*3+2] = c.B.Pix[i] * gains[2]
	}
	return out, nil
}

// ApplyColorMatrix transforms every pixel vector: the image is viewed as
// an N x 3 matrix and multiplied by Mᵀ.
func ApplyColorMatrix(img RGBImage, m ColorMatrix) RGBImage {
	out := NewRGBImage(img.Width, img.Height)
	n := img.Width * img.Height
	if n == 0 {
		return out
	}
	pixels := mat.NewDense(n, 3, img.Pix[:n*3])
	dst := mat.NewDense(n, 3, out.Pix)
	dst.Mul(pixels, m.dense().T())
	return out
}

// Correct applies white balance and, when m is non-nil, the color matrix.
// Black level is handled before interpolation; see Interpolate.
func Correct(c ChannelPlanes, gains [3]float64, m *ColorMatrix) (RGBImage, error) {
	img, err := ApplyWhiteBalance(c, gains)
	if err != nil {
		return RGBImage{}, err
	}
	if m == nil {
		return img, nil
	}
	return ApplyColorMatrix(img, *m), nil
}
