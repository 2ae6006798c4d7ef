//go:build !purego && !js

package rawdemosaic

import (
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"
)

// Backend names the filtering implementation compiled into this build.
const Backend = "opencv"

func planeToMat(p Plane) gocv.Mat {
	m := gocv.NewMatWithSize(p.Height, p.Width, gocv.MatTypeCV64F)
	data, _ := m.DataPtrFloat64()
	copy(data, p.Pix)
	return m
}

func matToPlane(m gocv.Mat) Plane {
	out := NewPlane(m.Cols(), m.Rows())
	data, _ := m.DataPtrFloat64()
	copy(out.Pix, data)
	return out
}

func cvBorder(mode BorderMode) gocv.BorderType {
	switch mode {
	case BorderReflect101:
		return gocv.BorderReflect101
	case BorderReplicate:
		return gocv.BorderReplicate
	default:
		return gocv.BorderReflect
	}
}

// filter3x3 correlates src with a 3x3 kernel, extending the border with mode.
func filter3x3(src Plane, k Kernel3, mode BorderMode) Plane {
	srcMat := planeToMat(src)
	defer srcMat.Close()

	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer kernel.Close()
	kd, _ := kernel.DataPtrFloat64()
	copy(kd, k[:])

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Filter2D(srcMat, &dst, gocv.MatTypeCV64F, kernel, image.Pt(-1, -1), 0, cvBorder(mode))
	return matToPlane(dst)
}

var bayerToRGB = map[BayerPattern]gocv.ColorConversionCode{
	BGGR: gocv.ColorBayerBGToRGB,
	RGGB: gocv.ColorBayerRGToRGB,
	GBRG: gocv.ColorBayerGBToRGB,
	GRBG: gocv.ColorBayerGRToRGB,
}

// demosaicLibrary runs OpenCV's Bayer conversion over the even region of m.
// Samples above blackLevel are stretched to the full 16-bit range for the
// conversion, as (v-black)/(max-black)*65535, and scaled back to sensor
// codes afterwards.
func demosaicLibrary(m MosaicPlane, p BayerPattern, blackLevel, maxSensorCode int) (ChannelPlanes, error) {
	code, ok := bayerToRGB[BayerPattern(strings.ToUpper(string(p)))]
	if !ok {
		return ChannelPlanes{}, fmt.Errorf("%w: no opencv conversion for pattern %q", ErrInvalidChannelCount, string(p))
	}
	width, height := m.EvenSize()
	if width < 2 || height < 2 {
		return ChannelPlanes{}, fmt.Errorf("%w: mosaic %dx%d is smaller than one tile", ErrInvalidFrame, m.Width, m.Height)
	}

	sensorRange := float64(maxSensorCode - blackLevel)
	black := float64(blackLevel)
	src := gocv.NewMatWithSize(height, width, gocv.MatTypeCV16U)
	defer src.Close()
	samples, err := src.DataPtrUint16()
	if err != nil {
		return ChannelPlanes{}, fmt.Errorf("%w: %v", ErrComputation, err)
	}
	for r := 0; r < height; r++ {
		row := m.Pix[r*m.Width : r*m.Width+width]
		for c, v := range row {
			samples[r*width+c] = uint16(clamp01((float64(v)-black)/sensorRange) * 65535)
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.CvtColor(src, &dst, code)
	rgb, err := dst.DataPtrUint16()
	if err != nil {
		return ChannelPlanes{}, fmt.Errorf("%w: %v", ErrComputation, err)
	}
	if len(rgb) < width*height*3 {
		return ChannelPlanes{}, fmt.Errorf("%w: bayer conversion returned %d samples", ErrComputation, len(rgb))
	}

	out := ChannelPlanes{R: NewPlane(width, height), G: NewPlane(width, height), B: NewPlane(width, height)}
	scale := sensorRange / 65535
	for i := 0; i < width*height; i++ {
		out.R.Pix[i] = float64(rgb[i*3]) * scale
		out.G.Pix[i] = float64(rgb[i*3+1]) * scale
		out.B.Pix[i] = float64(rgb[i*3+2]) * scale
	}
	return out, nil
}
