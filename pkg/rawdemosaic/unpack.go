package rawdemosaic

import (
	"encoding/binary"
	"fmt"
)

// UnpackPacked12 decodes CSI-2 packed 12-bit rows into a dense mosaic.
//
// Each 3-byte group holds two pixels:
//
//	byte0 = pixel0[7:0]
//	byte1 = pixel1[7:0]
//	byte2 = pixel1[11:8]<<4 | pixel0[11:8]
//
// Only the first width*3/2 bytes of every row are payload. The rest of the
// stride is padding and is never decoded.
func UnpackPacked12(data []byte, width, height, stride int) (MosaicPlane, error) {
	if width <= 0 || height <= 0 {
		return MosaicPlane{}, fmt.Errorf("%w: %dx%d", ErrInvalidFrame, width, height)
	}
	if width%2 != 0 {
		return MosaicPlane{}, fmt.Errorf("%w: packed12 needs an even width, got %d", ErrUnsupportedWidth, width)
	}
	payload := width * 3 / 2
	if stride < payload {
		return MosaicPlane{}, fmt.Errorf("%w: stride %d shorter than row payload %d", ErrInvalidFrame, stride, payload)
	}
	if len(data) < height*stride {
		return MosaicPlane{}, fmt.Errorf("%w: buffer has %d bytes, need %d", ErrInvalidFrame, len(data), height*stride)
	}

	out := NewMosaicPlane(width, height)
	for y := 0; y < height; y++ {
		row := data[y*stride : y*stride+payload]
		dst := out.Pix[y*width : (y+1)*width]
		for i, x := 0, 0; i < payload; i, x = i+3, x+2 {
			b0, b1, b2 := uint16(row[i]), uint16(row[i+1]), uint16(row[i+2])
			dst[x] = b0 | (b2&0x0F)<<8
			dst[x+1] = b1 | (b2&0xF0)<<4
		}
	}
	return out, nil
}

// UnpackUnpacked16 reads little-endian 16-bit samples, skipping row padding.
func UnpackUnpacked16(data []byte, width, height, stride int) (MosaicPlane, error) {
	if width <= 0 || height <= 0 {
		return MosaicPlane{}, fmt.Errorf("%w: %dx%d", ErrInvalidFrame, width, height)
	}
	if stride < width*2 {
		return MosaicPlane{}, fmt.Errorf("%w: stride %d shorter than row payload %d", ErrInvalidFrame, stride, width*2)
	}
	if len(data) < height*stride {
		return MosaicPlane{}, fmt.Errorf("%w: buffer has %d bytes, need %d", ErrInvalidFrame, len(data), height*stride)
	}

	out := NewMosaicPlane(width, height)
	for y := 0; y < height; y++ {
		row := data[y*stride:]
		for x := 0; x < width; x++ {
			out.Pix[y*width+x] = binary.LittleEndian.Uint16(row[x*2:])
		}
	}
	return out, nil
}

// Unpack decodes a RawFrame according to its format.
func Unpack(f RawFrame) (MosaicPlane, error) {
	switch f.Format {
	case FormatPacked12:
		return UnpackPacked12(f.Data, f.Width, f.Height, f.Stride)
	case FormatUnpacked16:
		return UnpackUnpacked16(f.Data, f.Width, f.Height, f.Stride)
	default:
		return MosaicPlane{}, fmt.Errorf("%w: unknown raw format %d", ErrInvalidFrame, int(f.Format))
	}
}

// PackPacked12 is the inverse of UnpackPacked12. Samples are masked to
// 12 bits and each row is padded with zeros up to stride.
func PackPacked12(m MosaicPlane, stride int) ([]byte, error) {
	if m.Width%2 != 0 {
		return nil, fmt.Errorf("%w: packed12 needs an even width, got %d", ErrUnsupportedWidth, m.Width)
	}
	payload := m.Width * 3 / 2
	if stride < payload {
		return nil, fmt.Errorf("%w: stride %d shorter than row payload %d", ErrInvalidFrame, stride, payload)
	}
	out := make([]byte, m.Height*stride)
	for y := 0; y < m.Height; y++ {
		src := m.Pix[y*m.Width : (y+1)*m.Width]
		row := out[y*stride:]
		for i, x := 0, 0; x < m.Width; i, x = i+3, x+2 {
			p0, p1 := src[x]&0x0FFF, src[x+1]&0x0FFF
			row[i] = byte(p0)
			row[i+1] = byte(p1)
			row[i+2] = byte(p0>>8) | byte(p1>>8)<<4
		}
	}
	return out, nil
}
