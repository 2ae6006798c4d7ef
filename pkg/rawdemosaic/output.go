package rawdemosaic

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ToImage converts the interleaved buffer to an image.RGBA (8-bit) or
// image.RGBA64 (16-bit) with opaque alpha.
func (o OutputImage) ToImage() image.Image {
	rect := image.Rect(0, 0, o.Width, o.Height)
	if o.BitDepth == 16 {
		img := image.NewRGBA64(rect)
		for y := 0; y < o.Height; y++ {
			for x := 0; x < o.Width; x++ {
				i := (y*o.Width + x) * 3
				img.SetRGBA64(x, y, color.RGBA64{R: o.Pix16[i], G: o.Pix16[i+1], B: o.Pix16[i+2], A: 0xffff})
			}
		}
		return img
	}
	img := image.NewRGBA(rect)
	for y := 0; y < o.Height; y++ {
		src := o.Pix8[y*o.Width*3 : (y+1)*o.Width*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+o.Width*4]
		for x := 0; x < o.Width; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img
}

// ImageFormat is an output container.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatTIFF ImageFormat = "tiff"
	FormatBMP  ImageFormat = "bmp"
	FormatJPEG ImageFormat = "jpeg"
)

// FormatFromPath picks the container from a file extension.
func FormatFromPath(path string) (ImageFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".bmp":
		return FormatBMP, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("unsupported output extension %q", filepath.Ext(path))
	}
}

// EncodeImage writes o in the given container. PNG and TIFF keep 16-bit
// samples; BMP and JPEG are 8-bit only and quantize 16-bit images.
func EncodeImage(w io.Writer, o OutputImage, format ImageFormat) error {
	img := o.ToImage()
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	default:
		return fmt.Errorf("unsupported image format %q", string(format))
	}
}

// WriteImage encodes o to path, choosing the container from its extension.
func WriteImage(path string, o OutputImage) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := EncodeImage(f, o, format); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return f.Close()
}
