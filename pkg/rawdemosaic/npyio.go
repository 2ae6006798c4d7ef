package rawdemosaic

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/sbinet/npyio"
)

var npyMagic = []byte("\x93NUMPY")

// NPYArray is a 2D unsigned integer array in NumPy .npy layout.
// Data is row-major; 16-bit elements are little-endian.
type NPYArray struct {
	Rows     int
	Cols     int
	ElemSize int // 1 for uint8, 2 for uint16
	Data     []byte
}

// ReadNPYFile reads a .npy file from disk. A .zst suffix selects zstd
// decompression.
func ReadNPYFile(path string) (*NPYArray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening npy file: %w", err)
	}
	defer f.Close()
	if !strings.HasSuffix(path, zstdSuffix) {
		return ReadNPY(bufio.NewReader(f))
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening zstd stream: %w", err)
	}
	defer dec.Close()
	return ReadNPY(dec)
}

// maxNPYElements bounds the array size accepted from a header, far above
// any sensor readout.
const maxNPYElements = 1 << 28

// ReadNPY decodes a 2D uint8 or uint16 array in C order. Big-endian uint16
// payloads are converted to little-endian.
func ReadNPY(r io.Reader) (*NPYArray, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading npy header: %v", ErrInputValidation, err)
	}
	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, fmt.Errorf("%w: fortran-ordered npy arrays are not supported", ErrInputValidation)
	}
	if len(descr.Shape) != 2 {
		return nil, fmt.Errorf("%w: raw array must be 2D, got shape %v", ErrInputValidation, descr.Shape)
	}
	rows, cols := descr.Shape[0], descr.Shape[1]
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative npy shape %v", ErrInputValidation, descr.Shape)
	}
	if cols > 0 && rows > maxNPYElements/cols {
		return nil, fmt.Errorf("%w: npy shape %v exceeds %d elements", ErrInputValidation, descr.Shape, maxNPYElements)
	}

	arr := &NPYArray{Rows: rows, Cols: cols}
	switch descr.Type {
	case "|u1", "<u1", ">u1", "u1":
		arr.ElemSize = 1
		arr.Data = make([]byte, rows*cols)
		if err := nr.Read(&arr.Data); err != nil {
			return nil, fmt.Errorf("reading npy data: %w", err)
		}
	case "<u2", ">u2", "=u2":
		arr.ElemSize = 2
		samples := make([]uint16, rows*cols)
		if err := nr.Read(&samples); err != nil {
			return nil, fmt.Errorf("reading npy data: %w", err)
		}
		arr.Data = make([]byte, len(samples)*2)
		for i, v := range samples {
			binary.LittleEndian.PutUint16(arr.Data[i*2:], v)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported npy dtype %q, want uint8 or uint16", ErrInputValidation, descr.Type)
	}
	return arr, nil
}

// WriteNPY encodes arr as a version 1.0 .npy stream with a 2D
// (Rows, Cols) header, as np.save writes a camera buffer.
func WriteNPY(w io.Writer, arr *NPYArray) error {
	var descr string
	switch arr.ElemSize {
	case 1:
		descr = "|u1"
	case 2:
		descr = "<u2"
	default:
		return fmt.Errorf("%w: unsupported element size %d", ErrInputValidation, arr.ElemSize)
	}
	if len(arr.Data) != arr.Rows*arr.Cols*arr.ElemSize {
		return fmt.Errorf("%w: npy data has %d bytes, shape needs %d", ErrInputValidation, len(arr.Data), arr.Rows*arr.Cols*arr.ElemSize)
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d, %d), }", descr, arr.Rows, arr.Cols)
	// magic(6) + version(2) + length(2) + header + '\n' is padded to 64 bytes
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing npy header: %w", err)
	}
	if _, err := w.Write(arr.Data); err != nil {
		return fmt.Errorf("writing npy data: %w", err)
	}
	return nil
}

// FrameToNPY lays a raw frame out as the array a camera stack would save:
// packed frames become uint8 (height, stride), unpacked frames uint16
// (height, stride/2).
func FrameToNPY(f RawFrame) (*NPYArray, error) {
	if len(f.Data) < f.Height*f.Stride {
		return nil, fmt.Errorf("%w: buffer has %d bytes, need %d", ErrInvalidFrame, len(f.Data), f.Height*f.Stride)
	}
	data := make([]byte, f.Height*f.Stride)
	copy(data, f.Data)
	switch f.Format {
	case FormatPacked12:
		return &NPYArray{Rows: f.Height, Cols: f.Stride, ElemSize: 1, Data: data}, nil
	case FormatUnpacked16:
		if f.Stride%2 != 0 {
			return nil, fmt.Errorf("%w: unpacked16 stride %d is odd", ErrInvalidFrame, f.Stride)
		}
		return &NPYArray{Rows: f.Height, Cols: f.Stride / 2, ElemSize: 2, Data: data}, nil
	default:
		return nil, fmt.Errorf("%w: unknown raw format %d", ErrInvalidFrame, int(f.Format))
	}
}

// FrameFromNPY rebuilds a raw frame from an array. A uint16 array is
// self-describing; a packed uint8 array needs meta for its pixel width.
func FrameFromNPY(arr *NPYArray, meta *FrameMetadata) (RawFrame, error) {
	switch arr.ElemSize {
	case 2:
		f := RawFrame{Width: arr.Cols, Height: arr.Rows, Stride: arr.Cols * 2, Format: FormatUnpacked16, Data: arr.Data}
		if meta != nil && meta.Width > 0 {
			f.Width = meta.Width
		}
		return f, nil
	case 1:
		if meta == nil || meta.Width <= 0 {
			return RawFrame{}, fmt.Errorf("%w: packed uint8 array needs width metadata", ErrInvalidFrame)
		}
		if meta.Format != FormatPacked12 {
			return RawFrame{}, fmt.Errorf("%w: uint8 array with format %s", ErrInvalidFrame, meta.Format)
		}
		return RawFrame{Width: meta.Width, Height: arr.Rows, Stride: arr.Cols, Format: FormatPacked12, Data: arr.Data}, nil
	default:
		return RawFrame{}, fmt.Errorf("%w: unsupported element size %d", ErrInvalidFrame, arr.ElemSize)
	}
}
