package rawdemosaic

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// rawTimestampLayout names saved captures, e.g. 20240131_093000.npy.
const rawTimestampLayout = "20060102_150405"

// zstdSuffix marks a zstd-compressed .npy capture.
const zstdSuffix = ".zst"

// FrameMetadata is the YAML sidecar saved next to a raw .npy capture.
type FrameMetadata struct {
	ID           string           `yaml:"id"`
	CapturedAt   time.Time        `yaml:"captured_at"`
	Width        int              `yaml:"width"`
	Height       int              `yaml:"height"`
	Stride       int              `yaml:"stride"`
	Format       RawFormat        `yaml:"format"`
	BayerPattern BayerPattern     `yaml:"bayer_pattern,omitempty"`
	Settings     *CaptureSettings `yaml:"settings,omitempty"`
}

// NewFrameMetadata describes frame with a fresh capture ID.
func NewFrameMetadata(frame RawFrame, pattern BayerPattern, settings *CaptureSettings) FrameMetadata {
	return FrameMetadata{
		ID:           uuid.NewString(),
		CapturedAt:   time.Now(),
		Width:        frame.Width,
		Height:       frame.Height,
		Stride:       frame.Stride,
		Format:       frame.Format,
		BayerPattern: pattern,
		Settings:     settings,
	}
}

// SidecarPath returns the metadata path belonging to a .npy or .npy.zst file.
func SidecarPath(npyPath string) string {
	base := strings.TrimSuffix(npyPath, zstdSuffix)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".yaml"
}

// SaveRaw writes the untouched frame to dir as <timestamp>.npy plus its
// YAML sidecar, and returns the .npy path. With compress the array is
// zstd-compressed and saved as <timestamp>.npy.zst.
func SaveRaw(dir string, frame RawFrame, meta FrameMetadata, compress bool) (string, error) {
	arr, err := FrameToNPY(frame)
	if err != nil {
		return "", err
	}
	if meta.CapturedAt.IsZero() {
		meta.CapturedAt = time.Now()
	}
	npyPath := filepath.Join(dir, meta.CapturedAt.Format(rawTimestampLayout)+".npy")
	if compress {
		npyPath += zstdSuffix
	}

	f, err := os.Create(npyPath)
	if err != nil {
		return "", fmt.Errorf("create raw file: %w", err)
	}
	if err := writeRawArray(f, arr, compress); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close raw file: %w", err)
	}

	sidecar, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(SidecarPath(npyPath), sidecar, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	return npyPath, nil
}

func writeRawArray(w io.Writer, arr *NPYArray, compress bool) error {
	if !compress {
		return WriteNPY(w, arr)
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := WriteNPY(enc, arr); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush zstd stream: %w", err)
	}
	return nil
}

// ReadFrameMetadata loads a YAML sidecar.
func ReadFrameMetadata(path string) (*FrameMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta FrameMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &meta, nil
}

// LoadRaw reads a .npy capture and, when present, its sidecar. The
// returned metadata is nil for a bare uint16 array.
func LoadRaw(npyPath string) (RawFrame, *FrameMetadata, error) {
	arr, err := ReadNPYFile(npyPath)
	if err != nil {
		return RawFrame{}, nil, err
	}
	meta, err := ReadFrameMetadata(SidecarPath(npyPath))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return RawFrame{}, nil, err
		}
		meta = nil
	}
	frame, err := FrameFromNPY(arr, meta)
	if err != nil {
		return RawFrame{}, nil, fmt.Errorf("%s: %w", npyPath, err)
	}
	return frame, meta, nil
}
