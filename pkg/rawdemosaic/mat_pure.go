//go:build purego || js

package rawdemosaic

import "fmt"

// Backend names the filtering implementation compiled into this build.
const Backend = "purego"

// filter3x3 correlates src with a 3x3 kernel, extending the border with mode.
func filter3x3(src Plane, k Kernel3, mode BorderMode) Plane {
	rows, cols := src.Height, src.Width
	dst := NewPlane(cols, rows)
	if rows == 0 || cols == 0 {
		return dst
	}

	border := func(r, c int) float64 {
		var sum float64
		for kr := 0; kr < 3; kr++ {
			rr := mode.Index(r+kr-1, rows) * cols
			for kc := 0; kc < 3; kc++ {
				sum += src.Pix[rr+mode.Index(c+kc-1, cols)] * k[kr*3+kc]
			}
		}
		return sum
	}

	for r := 0; r < rows; r++ {
		// Top and bottom rows go through the border path entirely
		if r == 0 || r == rows-1 {
			for c := 0; c < cols; c++ {
				dst.Pix[r*cols+c] = border(r, c)
			}
			continue
		}
		dst.Pix[r*cols] = border(r, 0)
		up, mid, down := (r-1)*cols, r*cols, (r+1)*cols
		// Interior, no bounds check needed
		for c := 1; c < cols-1; c++ {
			dst.Pix[mid+c] = src.Pix[up+c-1]*k[0] + src.Pix[up+c]*k[1] + src.Pix[up+c+1]*k[2] +
				src.Pix[mid+c-1]*k[3] + src.Pix[mid+c]*k[4] + src.Pix[mid+c+1]*k[5] +
				src.Pix[down+c-1]*k[6] + src.Pix[down+c]*k[7] + src.Pix[down+c+1]*k[8]
		}
		if cols > 1 {
			dst.Pix[mid+cols-1] = border(r, cols-1)
		}
	}
	return dst
}

// demosaicLibrary needs OpenCV and always fails in this build.
func demosaicLibrary(MosaicPlane, BayerPattern, int, int) (ChannelPlanes, error) {
	return ChannelPlanes{}, fmt.Errorf("%w: interpolation %s needs the opencv backend", ErrInvalidConfiguration, StrategyOpenCV)
}
