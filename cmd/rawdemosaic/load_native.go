//go:build !purego && !js

package main

import (
	"encoding/binary"
	"fmt"

	"gocv.io/x/gocv"

	rd "rawdemosaic/pkg/rawdemosaic"
)

// loadMosaicImage reads a single-channel 16-bit PNG or TIFF mosaic.
func loadMosaicImage(path string) (rd.RawFrame, error) {
	src := gocv.IMRead(path, gocv.IMReadUnchanged)
	if src.Empty() {
		return rd.RawFrame{}, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	if src.Channels() != 1 {
		return rd.RawFrame{}, fmt.Errorf("%s: mosaic image must have 1 channel, got %d", path, src.Channels())
	}
	w, h := src.Cols(), src.Rows()

	samples := gocv.NewMat()
	defer samples.Close()
	src.ConvertTo(&samples, gocv.MatTypeCV16U)
	pixels, err := samples.DataPtrUint16()
	if err != nil {
		return rd.RawFrame{}, fmt.Errorf("%s: reading samples: %w", path, err)
	}

	data := make([]byte, w*h*2)
	for i, p := range pixels[:w*h] {
		binary.LittleEndian.PutUint16(data[i*2:], p)
	}
	return rd.RawFrame{Width: w, Height: h, Stride: w * 2, Format: rd.FormatUnpacked16, Data: data}, nil
}
