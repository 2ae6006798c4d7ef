package rawdemosaic

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sbinet/npyio"
)

// TestSaveLoadRawRoundTrip verifies a packed capture and its sidecar survive storage.
func TestSaveLoadRawRoundTrip(t *testing.T) {
	dir := t.TempDir()
	frame := RawFrame{Width: 4, Height: 4, Stride: 8, Format: FormatPacked12, Data: packed4x4}
	settings := DefaultCaptureSettings()
	meta := NewFrameMetadata(frame, GRBG, &settings)
	meta.CapturedAt = time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)

	path, err := SaveRaw(dir, frame, meta, false)
	if err != nil {
		t.Fatalf("SaveRaw failed: %v", err)
	}
	if filepath.Base(path) != "20240131_093000.npy" {
		t.Errorf("Expected timestamped name, got %s", filepath.Base(path))
	}
	if _, err := os.Stat(SidecarPath(path)); err != nil {
		t.Fatalf("Sidecar missing: %v", err)
	}

	got, gotMeta, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("LoadRaw failed: %v", err)
	}
	if got.Width != 4 || got.Height != 4 || got.Stride != 8 || got.Format != FormatPacked12 {
		t.Errorf("Unexpected frame %s", got)
	}
	if !bytes.Equal(got.Data, frame.Data) {
		t.Error("Frame data changed on round trip")
	}
	if gotMeta == nil {
		t.Fatal("Expected metadata")
	}
	if gotMeta.ID != meta.ID || gotMeta.BayerPattern != GRBG || !gotMeta.CapturedAt.Equal(meta.CapturedAt) {
		t.Errorf("Unexpected metadata %+v", gotMeta)
	}
	if gotMeta.Settings == nil || gotMeta.Settings.ExposureMicros != 10000 {
		t.Errorf("Expected capture settings in sidecar, got %+v", gotMeta.Settings)
	}
}

func TestSaveLoadRawCompressed(t *testing.T) {
	dir := t.TempDir()
	m := uniformMosaic(64, 32, 1234)
	data, err := PackPacked12(m, 96)
	if err != nil {
		t.Fatalf("PackPacked12 failed: %v", err)
	}
	frame := RawFrame{Width: 64, Height: 32, Stride: 96, Format: FormatPacked12, Data: data}

	path, err := SaveRaw(dir, frame, NewFrameMetadata(frame, BGGR, nil), true)
	if err != nil {
		t.Fatalf("SaveRaw failed: %v", err)
	}
	if filepath.Ext(path) != ".zst" {
		t.Errorf("Expected a .zst capture, got %s", path)
	}
	if got := SidecarPath(path); got != path[:len(path)-len(".npy.zst")]+".yaml" {
		t.Errorf("Unexpected sidecar path %s", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() >= int64(len(data)) {
		t.Errorf("Expected a flat frame to compress, got %d bytes for %d", info.Size(), len(data))
	}

	got, meta, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("LoadRaw failed: %v", err)
	}
	if meta == nil || meta.Width != 64 {
		t.Fatalf("Expected sidecar metadata, got %+v", meta)
	}
	if !bytes.Equal(got.Data, data) {
		t.Error("Frame data changed on round trip")
	}
}

func TestLoadRawUnpackedWithoutSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.npy")
	arr := &NPYArray{Rows: 2, Cols: 3, ElemSize: 2, Data: make([]byte, 12)}
	binary.LittleEndian.PutUint16(arr.Data[10:], 4095)
	writeNPYFile(t, path, arr)

	frame, meta, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("LoadRaw failed: %v", err)
	}
	if meta != nil {
		t.Errorf("Expected no metadata, got %+v", meta)
	}
	m, err := Unpack(frame)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if m.Width != 3 || m.Height != 2 || m.At(1, 2) != 4095 {
		t.Errorf("Unexpected mosaic %dx%d, last %d", m.Width, m.Height, m.At(1, 2))
	}
}

func TestLoadRawPackedNeedsSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packed.npy")
	writeNPYFile(t, path, &NPYArray{Rows: 4, Cols: 8, ElemSize: 1, Data: packed4x4})
	if _, _, err := LoadRaw(path); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
}

func TestReadNPYBigEndian(t *testing.T) {
	header := "{'descr': '>u2', 'fortran_order': False, 'shape': (1, 2), }\n"
	var buf bytes.Buffer
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	buf.Write([]byte{0x12, 0x34, 0x00, 0x01})

	arr, err := ReadNPY(&buf)
	if err != nil {
		t.Fatalf("ReadNPY failed: %v", err)
	}
	if got := binary.LittleEndian.Uint16(arr.Data); got != 0x1234 {
		t.Errorf("Expected 0x1234, got %#x", got)
	}
	if got := binary.LittleEndian.Uint16(arr.Data[2:]); got != 1 {
		t.Errorf("Expected 1, got %d", got)
	}
}

func TestReadNPYRejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"float dtype", "{'descr': '<f4', 'fortran_order': False, 'shape': (2, 2), }"},
		{"fortran order", "{'descr': '<u2', 'fortran_order': True, 'shape': (2, 2), }"},
		{"3d", "{'descr': '<u2', 'fortran_order': False, 'shape': (2, 2, 3), }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			buf.Write(npyMagic)
			buf.Write([]byte{1, 0})
			binary.Write(&buf, binary.LittleEndian, uint16(len(tt.header)))
			buf.WriteString(tt.header)
			if _, err := ReadNPY(&buf); !errors.Is(err, ErrInputValidation) {
				t.Errorf("Expected ErrInputValidation, got %v", err)
			}
		})
	}
	if _, err := ReadNPY(bytes.NewReader([]byte("not an npy file"))); !errors.Is(err, ErrInputValidation) {
		t.Errorf("Expected ErrInputValidation, got %v", err)
	}
}

// TestReadNPYRejectsBadShape verifies malformed dimensions fail before any allocation.
func TestReadNPYRejectsBadShape(t *testing.T) {
	tests := []struct {
		name  string
		shape string
	}{
		{"negative rows", "(-2, 4)"},
		{"negative cols", "(4, -2)"},
		{"too large", "(1048576, 1048576)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := "{'descr': '<u2', 'fortran_order': False, 'shape': " + tt.shape + ", }\n"
			var buf bytes.Buffer
			buf.Write(npyMagic)
			buf.Write([]byte{1, 0})
			binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
			buf.WriteString(header)
			buf.Write(make([]byte, 16))
			if _, err := ReadNPY(&buf); !errors.Is(err, ErrInputValidation) {
				t.Errorf("Expected ErrInputValidation, got %v", err)
			}
		})
	}
}

// TestWriteNPYHeaderAlignment verifies the data offset is a multiple of 64.
func TestWriteNPYHeaderAlignment(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNPY(&buf, &NPYArray{Rows: 480, Cols: 960, ElemSize: 1, Data: make([]byte, 480*960)}); err != nil {
		t.Fatalf("WriteNPY failed: %v", err)
	}
	headerLen := int(binary.LittleEndian.Uint16(buf.Bytes()[8:10]))
	if (10+headerLen)%64 != 0 {
		t.Errorf("Expected 64-byte aligned data, got offset %d", 10+headerLen)
	}
	if buf.Len() != 10+headerLen+480*960 {
		t.Errorf("Unexpected stream length %d", buf.Len())
	}
}

func writeNPYFile(t *testing.T, path string, arr *NPYArray) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := WriteNPY(f, arr); err != nil {
		t.Fatalf("WriteNPY failed: %v", err)
	}
}

// TestWriteNPYReadableByNPYIO verifies saved captures keep their 2D shape
// and dtype for other npy readers.
func TestWriteNPYReadableByNPYIO(t *testing.T) {
	data := []byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0, 6, 0}
	var buf bytes.Buffer
	if err := WriteNPY(&buf, &NPYArray{Rows: 2, Cols: 3, ElemSize: 2, Data: data}); err != nil {
		t.Fatalf("WriteNPY failed: %v", err)
	}
	r, err := npyio.NewReader(&buf)
	if err != nil {
		t.Fatalf("npyio.NewReader failed: %v", err)
	}
	descr := r.Header.Descr
	if descr.Type != "<u2" || descr.Fortran || len(descr.Shape) != 2 || descr.Shape[0] != 2 || descr.Shape[1] != 3 {
		t.Fatalf("Unexpected header %+v", descr)
	}
	samples := make([]uint16, 6)
	if err := r.Read(&samples); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	for i, v := range samples {
		if v != uint16(i+1) {
			t.Errorf("sample %d: expected %d, got %d", i, i+1, v)
		}
	}
}
