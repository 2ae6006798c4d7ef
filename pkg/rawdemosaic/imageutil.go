package rawdemosaic

import (
	"math"
	"sort"
)

// BilinearSample samples p at fractional coordinates (y, x). The upper
// neighbours are clamped to the last valid row and column.
func BilinearSample(p Plane, y, x float64) float64 {
	y0 := int(math.Floor(y))
	y1 := y0 + 1
	if y1 > p.Height-1 {
		y1 = p.Height - 1
	}
	x0 := int(math.Floor(x))
	x1 := x0 + 1
	if x1 > p.Width-1 {
		x1 = p.Width - 1
	}
	yRatio := y - float64(y0)
	xRatio := x - float64(x0)

	p00 := p.Pix[y0*p.Width+x0]
	p01 := p.Pix[y0*p.Width+x1]
	p10 := p.Pix[y1*p.Width+x0]
	p11 := p.Pix[y1*p.Width+x1]
	interpolatedX0 := p00 + xRatio*(p01-p00)
	interpolatedX1 := p10 + xRatio*(p11-p10)
	return interpolatedX0 + yRatio*(interpolatedX1-interpolatedX0)
}

// sourceCoord maps output index i onto the endpoint-inclusive source axis.
func sourceCoord(i, inN, outN int) float64 {
	if outN <= 1 || inN <= 1 {
		return 0
	}
	return float64(i) * float64(inN-1) / float64(outN-1)
}

// ResizeBilinear resamples p to width x height. The first and last output
// samples land exactly on the first and last source samples, so resizing to
// the same size reproduces p.
func ResizeBilinear(p Plane, width, height int) Plane {
	out := NewPlane(width, height)
	if p.Empty() {
		return out
	}
	xs := make([]float64, width)
	for c := range xs {
		xs[c] = sourceCoord(c, p.Width, width)
	}
	for r := 0; r < height; r++ {
		y := sourceCoord(r, p.Height, height)
		row := out.Pix[r*width : (r+1)*width]
		for c, x := range xs {
			row[c] = BilinearSample(p, y, x)
		}
	}
	return out
}

// clamp01 clips v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Percentile returns the q-th percentile (q in [0, 100]) of values using
// linear interpolation between the two closest ranks. values is not modified.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, q)
}

func percentileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	rank := q / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
