package rawdemosaic

import (
	"fmt"
	"strings"
)

// BorderMode is the policy for reading a grid outside its bounds.
type BorderMode int

const (
	// BorderReflect mirrors with the edge sample repeated: dcba|abcd|dcba.
	BorderReflect BorderMode = iota
	// BorderReflect101 mirrors around the edge sample: dcb|abcd|cba.
	BorderReflect101
	// BorderReplicate clamps to the nearest edge sample: aaa|abcd|ddd.
	BorderReplicate
)

func (b BorderMode) String() string {
	switch b {
	case BorderReflect:
		return "reflect"
	case BorderReflect101:
		return "reflect101"
	case BorderReplicate:
		return "replicate"
	default:
		return "unknown"
	}
}

// ParseBorderMode parses "reflect", "reflect101" or "replicate".
func ParseBorderMode(s string) (BorderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reflect", "mirror", "symmetric":
		return BorderReflect, nil
	case "reflect101", "reflect-101":
		return BorderReflect101, nil
	case "replicate", "clamp", "edge":
		return BorderReplicate, nil
	default:
		return 0, fmt.Errorf("%w: unknown border mode %q", ErrInvalidConfiguration, s)
	}
}

func (b BorderMode) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *BorderMode) UnmarshalText(text []byte) error {
	v, err := ParseBorderMode(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Index maps a possibly out-of-range index onto [0, size).
func (b BorderMode) Index(idx, size int) int {
	if idx >= 0 && idx < size {
		return idx
	}
	if size == 1 {
		return 0
	}
	switch b {
	case BorderReplicate:
		if idx < 0 {
			return 0
		}
		return size - 1
	case BorderReflect101:
		period := 2*size - 2
		idx %= period
		if idx < 0 {
			idx += period
		}
		if idx >= size {
			idx = period - idx
		}
		return idx
	default:
		period := 2 * size
		idx %= period
		if idx < 0 {
			idx += period
		}
		if idx >= size {
			idx = period - 1 - idx
		}
		return idx
	}
}

// AtBorder reads p at (row, col), extending the grid with mode.
func (p Plane) AtBorder(row, col int, mode BorderMode) float64 {
	return p.Pix[mode.Index(row, p.Height)*p.Width+mode.Index(col, p.Width)]
}
