package rawdemosaic

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	previewWidth    = 800
	previewCaptionH = 24
)

// WritePreview renders a captioned preview and writes it as JPEG.
func WritePreview(o OutputImage, title, outputPath string) error {
	img, err := RenderPreview(o, title)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create preview file: %w", err)
	}
	defer f.Close()

	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}

// RenderPreviewBytes renders a captioned preview and returns it as JPEG bytes.
func RenderPreviewBytes(o OutputImage, title string) ([]byte, error) {
	img, err := RenderPreview(o, title)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPreview scales o to 800 px wide (never upscaling) and adds a
// caption bar holding title below the image.
func RenderPreview(o OutputImage, title string) (*image.RGBA, error) {
	if o.Width == 0 || o.Height == 0 {
		return nil, ErrEmptyImage
	}

	imgW, imgH := o.Width, o.Height
	if imgW > previewWidth {
		imgH = max(int(float64(o.Height)*float64(previewWidth)/float64(o.Width)), 1)
		imgW = previewWidth
	}
	canvas := image.NewRGBA(image.Rect(0, 0, imgW, imgH+previewCaptionH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 255}), image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(canvas, image.Rect(0, 0, imgW, imgH), o.ToImage(), image.Rect(0, 0, o.Width, o.Height), draw.Src, nil)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.RGBA{220, 220, 220, 255}),
		Face: face,
	}
	advance := d.MeasureString(title).Round()
	x := max((imgW-advance)/2, 4)
	d.Dot = fixed.P(x, imgH+previewCaptionH/2+face.Ascent/2)
	d.DrawString(title)

	return canvas, nil
}
