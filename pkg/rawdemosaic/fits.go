package rawdemosaic

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	fitsRecordSize  = 80
	fitsBlockCards  = 36
	fitsBlockLength = fitsRecordSize * fitsBlockCards
)

// FitsMetadata holds parsed FITS header key-value pairs.
type FitsMetadata struct {
	Headers map[string]string
}

func (m *FitsMetadata) GetString(key string) string {
	return m.Headers[strings.ToUpper(key)]
}

func (m *FitsMetadata) GetDouble(key string) (float64, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (m *FitsMetadata) GetInt(key string) (int, bool) {
	d, ok := m.GetDouble(key)
	if !ok || d != math.Trunc(d) {
		return 0, false
	}
	return int(d), true
}

// BayerPattern returns the BAYERPAT card, when it names a known tile.
func (m *FitsMetadata) BayerPattern() (BayerPattern, bool) {
	p, err := ParseBayerPattern(m.GetString("BAYERPAT"))
	if err != nil {
		return "", false
	}
	return p, true
}

func (m *FitsMetadata) ExposureTime() (float64, bool) {
	if v, ok := m.GetDouble("EXPTIME"); ok {
		return v, true
	}
	return m.GetDouble("EXPOSURE")
}

// ReadFitsFrame reads a single-plane FITS mosaic from a file.
func ReadFitsFrame(filePath string) (RawFrame, *FitsMetadata, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return RawFrame{}, nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return readFitsFrame(f)
}

// ReadFitsFrameFromBytes reads a single-plane FITS mosaic from memory.
func ReadFitsFrameFromBytes(data []byte) (RawFrame, *FitsMetadata, error) {
	return readFitsFrame(bytes.NewReader(data))
}

// readFitsFrame decodes the primary HDU of an 8- or 16-bit FITS image into
// an unpacked16 frame, applying BZERO and BSCALE.
func readFitsFrame(r io.Reader) (RawFrame, *FitsMetadata, error) {
	meta := &FitsMetadata{Headers: make(map[string]string)}
	record := make([]byte, fitsRecordSize)

	for cards, done := 0, false; !done; cards++ {
		if _, err := io.ReadFull(r, record); err != nil {
			return RawFrame{}, nil, fmt.Errorf("reading FITS header record: %w", err)
		}
		keyword := strings.TrimSpace(string(record[:8]))
		if keyword == "END" {
			// skip the rest of the header block
			if rest := fitsBlockCards - 1 - cards%fitsBlockCards; rest > 0 {
				if _, err := io.CopyN(io.Discard, r, int64(rest*fitsRecordSize)); err != nil {
					return RawFrame{}, nil, fmt.Errorf("skipping FITS header padding: %w", err)
				}
			}
			done = true
			continue
		}
		if record[8] != '=' || record[9] != ' ' {
			continue
		}
		if value := parseFitsValue(strings.TrimSpace(strings.SplitN(string(record[10:]), "/", 2)[0])); keyword != "" && value != "" {
			meta.Headers[keyword] = value
		}
	}

	bitpix, _ := meta.GetInt("BITPIX")
	naxis, _ := meta.GetInt("NAXIS")
	width, _ := meta.GetInt("NAXIS1")
	height, _ := meta.GetInt("NAXIS2")
	bzero, ok := meta.GetDouble("BZERO")
	if !ok {
		bzero = 0
	}
	bscale, ok := meta.GetDouble("BSCALE")
	if !ok {
		bscale = 1
	}
	if naxis != 2 || width <= 0 || height <= 0 {
		return RawFrame{}, nil, fmt.Errorf("%w: FITS mosaic must be 2D, got NAXIS=%d, NAXIS1=%d, NAXIS2=%d",
			ErrInvalidFrame, naxis, width, height)
	}

	numPixels := width * height
	out := make([]byte, numPixels*2)
	store := func(i int, physical float64) {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(math.Min(math.Max(physical, 0), 65535)))
	}

	switch bitpix {
	case 16:
		raw := make([]byte, numPixels*2)
		if _, err := io.ReadFull(r, raw); err != nil {
			return RawFrame{}, nil, fmt.Errorf("reading 16-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			store(i, float64(int16(binary.BigEndian.Uint16(raw[i*2:])))*bscale+bzero)
		}
	case 8:
		raw := make([]byte, numPixels)
		if _, err := io.ReadFull(r, raw); err != nil {
			return RawFrame{}, nil, fmt.Errorf("reading 8-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			store(i, float64(raw[i])*bscale+bzero)
		}
	default:
		return RawFrame{}, nil, fmt.Errorf("%w: unsupported BITPIX %d for a raw mosaic", ErrInvalidFrame, bitpix)
	}

	return RawFrame{Width: width, Height: height, Stride: width * 2, Format: FormatUnpacked16, Data: out}, meta, nil
}

func parseFitsValue(rawValue string) string {
	switch {
	case rawValue == "":
		return ""
	case rawValue == "T":
		return "True"
	case rawValue == "F":
		return "False"
	case strings.HasPrefix(rawValue, "'"):
		if end := strings.LastIndex(rawValue, "'"); end > 0 {
			return strings.TrimRight(rawValue[1:end], " ")
		}
		return strings.Trim(rawValue, "' ")
	default:
		return rawValue
	}
}

// fitsBlockPadding returns the bytes needed to fill n up to a FITS block.
func fitsBlockPadding(n int) int {
	if rem := n % fitsBlockLength; rem != 0 {
		return fitsBlockLength - rem
	}
	return 0
}

// WriteFitsMosaic encodes a mosaic as a 16-bit FITS image with
// BZERO=32768, tagging it with BAYERPAT.
func WriteFitsMosaic(w io.Writer, m MosaicPlane, pattern BayerPattern) error {
	var hdr bytes.Buffer
	card := func(key, value string) {
		fmt.Fprintf(&hdr, "%-8s= %20s", key, value)
		hdr.WriteString(strings.Repeat(" ", fitsRecordSize-30))
	}
	card("SIMPLE", "T")
	card("BITPIX", "16")
	card("NAXIS", "2")
	card("NAXIS1", strconv.Itoa(m.Width))
	card("NAXIS2", strconv.Itoa(m.Height))
	card("BZERO", "32768")
	card("BSCALE", "1")
	card("BAYERPAT", "'"+string(pattern)+"'")
	hdr.WriteString(fmt.Sprintf("%-80s", "END"))
	hdr.Write(bytes.Repeat([]byte(" "), fitsBlockPadding(hdr.Len())))

	data := make([]byte, m.Width*m.Height*2)
	for i, v := range m.Pix[:m.Width*m.Height] {
		binary.BigEndian.PutUint16(data[i*2:], uint16(int32(v)-32768))
	}
	data = append(data, make([]byte, fitsBlockPadding(len(data)))...)

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return fmt.Errorf("writing FITS header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing FITS data: %w", err)
	}
	return nil
}
