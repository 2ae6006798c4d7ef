package rawdemosaic

import (
	"fmt"
	"strings"
)

// BayerPattern names the 2x2 color filter tile, read row-major:
// "BGGR" means B at (0,0), G at (0,1), G at (1,0), R at (1,1).
type BayerPattern string

const (
	BGGR BayerPattern = "BGGR"
	RGGB BayerPattern = "RGGB"
	GBRG BayerPattern = "GBRG"
	GRBG BayerPattern = "GRBG"
)

// ParseBayerPattern accepts the four standard tile names, case-insensitively.
func ParseBayerPattern(s string) (BayerPattern, error) {
	p := BayerPattern(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case BGGR, RGGB, GBRG, GRBG:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown bayer pattern %q", ErrInvalidConfiguration, s)
	}
}

func (p *BayerPattern) UnmarshalText(text []byte) error {
	v, err := ParseBayerPattern(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// TileOffset is a (row, col) position inside the 2x2 tile.
type TileOffset struct {
	Row, Col int
}

// TileLayout holds the tile position of every color site.
type TileLayout struct {
	R, Gr, Gb, B TileOffset
}

// Layout resolves the tile positions of R, Gr, Gb and B. It fails with
// ErrInvalidChannelCount unless the tile has exactly one R, one B and two
// G sites, with the greens on a diagonal.
func (p BayerPattern) Layout() (TileLayout, error) {
	s := strings.ToUpper(string(p))
	if len(s) != 4 {
		return TileLayout{}, fmt.Errorf("%w: pattern %q must have 4 sites", ErrInvalidChannelCount, string(p))
	}
	var l TileLayout
	var nr, ng, nb int
	var greens [2]TileOffset
	for i := 0; i < 4; i++ {
		off := TileOffset{Row: i / 2, Col: i % 2}
		switch s[i] {
		case 'R':
			l.R = off
			nr++
		case 'B':
			l.B = off
			nb++
		case 'G':
			if ng < 2 {
				greens[ng] = off
			}
			ng++
		default:
			return TileLayout{}, fmt.Errorf("%w: pattern %q has unknown site %q", ErrInvalidChannelCount, string(p), s[i])
		}
	}
	if nr != 1 || nb != 1 || ng != 2 {
		return TileLayout{}, fmt.Errorf("%w: pattern %q has R=%d G=%d B=%d", ErrInvalidChannelCount, string(p), nr, ng, nb)
	}
	if greens[0].Row == greens[1].Row {
		return TileLayout{}, fmt.Errorf("%w: pattern %q greens share a row", ErrInvalidChannelCount, string(p))
	}
	if greens[0].Row == l.R.Row {
		l.Gr, l.Gb = greens[0], greens[1]
	} else {
		l.Gr, l.Gb = greens[1], greens[0]
	}
	return l, nil
}

// Color returns the filter color ('R', 'G' or 'B') over mosaic pixel (row, col).
func (l TileLayout) Color(row, col int) byte {
	off := TileOffset{Row: row & 1, Col: col & 1}
	switch off {
	case l.R:
		return 'R'
	case l.B:
		return 'B'
	default:
		return 'G'
	}
}

// EvenSize returns the largest even width and height not exceeding the
// mosaic size. A trailing odd row or column carries an incomplete tile and
// is dropped by every interpolation strategy.
func (m MosaicPlane) EvenSize() (int, int) {
	return m.Width &^ 1, m.Height &^ 1
}

// Sample splits a mosaic into its four half-resolution color grids. Grid
// sample (row, col) is the mosaic value at (2*row+rowOffset, 2*col+colOffset).
//
// Odd sizes are truncated: the grids are (Height/2) x (Width/2).
func Sample(m MosaicPlane, p BayerPattern) (ChannelGrids, error) {
	layout, err := p.Layout()
	if err != nil {
		return ChannelGrids{}, err
	}
	if m.Width < 2 || m.Height < 2 {
		return ChannelGrids{}, fmt.Errorf("%w: mosaic %dx%d is smaller than one tile", ErrInvalidFrame, m.Width, m.Height)
	}
	if len(m.Pix) < m.Width*m.Height {
		return ChannelGrids{}, fmt.Errorf("%w: mosaic has %d samples, need %d", ErrInvalidFrame, len(m.Pix), m.Width*m.Height)
	}

	return ChannelGrids{
		R:  sampleSite(m, layout.R),
		Gr: sampleSite(m, layout.Gr),
		Gb: sampleSite(m, layout.Gb),
		B:  sampleSite(m, layout.B),
	}, nil
}

func sampleSite(m MosaicPlane, off TileOffset) Plane {
	cols, rows := m.Width/2, m.Height/2
	out := NewPlane(cols, rows)
	for r := 0; r < rows; r++ {
		src := (2*r + off.Row) * m.Width
		dst := r * cols
		for c := 0; c < cols; c++ {
			out.Pix[dst+c] = float64(m.Pix[src+2*c+off.Col])
		}
	}
	return out
}
