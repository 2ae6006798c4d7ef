//go:build purego || js

package main

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"

	rd "rawdemosaic/pkg/rawdemosaic"
)

// loadMosaicImage reads a single-channel 16-bit PNG or TIFF mosaic.
func loadMosaicImage(path string) (rd.RawFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return rd.RawFrame{}, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return rd.RawFrame{}, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	data := make([]byte, w*h*2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			binary.LittleEndian.PutUint16(data[(y*w+x)*2:], g.Y)
		}
	}
	return rd.RawFrame{Width: w, Height: h, Stride: w * 2, Format: rd.FormatUnpacked16, Data: data}, nil
}
