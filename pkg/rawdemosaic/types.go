package rawdemosaic

import (
	"fmt"
	"strings"
)

// RawFormat identifies the sample layout of a RawFrame buffer.
type RawFormat int

const (
	// FormatPacked12 is the CSI-2 packed layout: 2 pixels in 3 bytes.
	FormatPacked12 RawFormat = iota
	// FormatUnpacked16 stores one little-endian uint16 per pixel.
	FormatUnpacked16
)

func (f RawFormat) String() string {
	switch f {
	case FormatPacked12:
		return "packed12"
	case FormatUnpacked16:
		return "unpacked16"
	default:
		return "unknown"
	}
}

// ParseRawFormat parses "packed12" or "unpacked16".
func ParseRawFormat(s string) (RawFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "packed12", "packed-12":
		return FormatPacked12, nil
	case "unpacked16", "unpacked-16":
		return FormatUnpacked16, nil
	default:
		return 0, fmt.Errorf("%w: raw format %q", ErrInvalidFrame, s)
	}
}

func (f RawFormat) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *RawFormat) UnmarshalText(text []byte) error {
	v, err := ParseRawFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// RawFrame is a single sensor capture as delivered by the camera or read
// back from storage. Stride is the number of bytes per row, including padding.
type RawFrame struct {
	Width  int
	Height int
	Stride int
	Format RawFormat
	Data   []byte
}

func (f RawFrame) String() string {
	return fmt.Sprintf("{%dx%d, stride=%d, format=%s, bytes=%d}", f.Width, f.Height, f.Stride, f.Format, len(f.Data))
}

// MosaicPlane is a dense grid of raw samples with the colors still
// interleaved per the Bayer layout.
type MosaicPlane struct {
	Width  int
	Height int
	Pix    []uint16
}

// NewMosaicPlane allocates a zeroed width x height mosaic.
func NewMosaicPlane(width, height int) MosaicPlane {
	return MosaicPlane{Width: width, Height: height, Pix: make([]uint16, width*height)}
}

func (m MosaicPlane) At(row, col int) uint16 { return m.Pix[row*m.Width+col] }

// Plane is a row-major float64 grid. It backs both the half-resolution
// per-color grids and the full-resolution interpolated channel planes.
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane allocates a zeroed width x height plane.
func NewPlane(width, height int) Plane {
	return Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

func (p Plane) At(row, col int) float64 { return p.Pix[row*p.Width+col] }
func (p Plane) Empty() bool              { return p.Width == 0 || p.Height == 0 }

// Clone returns a deep copy.
func (p Plane) Clone() Plane {
	out := NewPlane(p.Width, p.Height)
	copy(out.Pix, p.Pix)
	return out
}

// ChannelGrids are the four half-resolution samplings of a mosaic.
// Gr is the green site sharing a row with red, Gb the one sharing a row with blue.
type ChannelGrids struct {
	R, Gr, Gb, B Plane
}

// ChannelPlanes are full-resolution per-color planes after interpolation.
type ChannelPlanes struct {
	R, G, B Plane
}

func (c ChannelPlanes) Width() int  { return c.R.Width }
func (c ChannelPlanes) Height() int { return c.R.Height }

// RGBImage is an interleaved three-channel float image.
type RGBImage struct {
	Width  int
	Height int
	Pix    []float64 // R, G, B per pixel, row-major
}

// NewRGBImage allocates a zeroed width x height RGB image.
func NewRGBImage(width, height int) RGBImage {
	return RGBImage{Width: width, Height: height, Pix: make([]float64, width*height*3)}
}

// At returns the value of channel ch (0=R, 1=G, 2=B) at (row, col).
func (img RGBImage) At(row, col, ch int) float64 {
	return img.Pix[(row*img.Width+col)*3+ch]
}

// OutputImage is the final interleaved RGB image. Exactly one of Pix8 and
// Pix16 is populated, depending on BitDepth.
type OutputImage struct {
	Width    int
	Height   int
	BitDepth int
	Pix8     []uint8
	Pix16    []uint16
}

// At returns the sample of channel ch at (row, col) widened to uint16.
func (o OutputImage) At(row, col, ch int) uint16 {
	i := (row*o.Width+col)*3 + ch
	if o.BitDepth == 16 {
		return o.Pix16[i]
	}
	return uint16(o.Pix8[i])
}
