package rawdemosaic

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// TestPipelineUniformFrame runs a flat packed frame through both strategies.
func TestPipelineUniformFrame(t *testing.T) {
	data, err := PackPacked12(uniformMosaic(8, 6, 2000), 16)
	if err != nil {
		t.Fatalf("PackPacked12 failed: %v", err)
	}
	frame := RawFrame{Width: 8, Height: 6, Stride: 16, Format: FormatPacked12, Data: data}

	for _, s := range []Strategy{StrategyBilinear, StrategyWeightedConvolution} {
		t.Run(s.String(), func(t *testing.T) {
			cfg := linearConfig()
			cfg.BlackLevel = 256
			cfg.Interpolation = s
			p, err := NewPipeline(cfg, nil)
			if err != nil {
				t.Fatalf("NewPipeline failed: %v", err)
			}
			res, err := p.Process(frame)
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if res.Output.Width != 8 || res.Output.Height != 6 || res.Output.BitDepth != 8 {
				t.Fatalf("Expected 8x6 8-bit output, got %dx%d %d-bit", res.Output.Width, res.Output.Height, res.Output.BitDepth)
			}
			for i, v := range res.Corrected.Pix {
				assertClose(t, "corrected", v, 1744)
				if res.Output.Pix8[i] != 115 {
					t.Fatalf("sample %d: expected 115, got %d", i, res.Output.Pix8[i])
				}
			}
		})
	}
}

// TestPipelineReference runs the packed reference capture end to end.
func TestPipelineReference(t *testing.T) {
	p, err := NewPipeline(linearConfig(), nil)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	res, err := p.Process(RawFrame{Width: 4, Height: 4, Stride: 8, Format: FormatPacked12, Data: packed4x4})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	for i, want := range mosaic4x4 {
		if res.Mosaic.Pix[i] != want {
			t.Fatalf("mosaic %d: expected %d, got %d", i, want, res.Mosaic.Pix[i])
		}
	}
	tests := []struct {
		r, c       int
		r8, g8, b8 uint16
	}{
		{0, 0, 37, 21, 6},
		{3, 3, 99, 84, 68},
	}
	for _, tt := range tests {
		got := [3]uint16{res.Output.At(tt.r, tt.c, 0), res.Output.At(tt.r, tt.c, 1), res.Output.At(tt.r, tt.c, 2)}
		want := [3]uint16{tt.r8, tt.g8, tt.b8}
		if got != want {
			t.Errorf("(%d,%d): expected %v, got %v", tt.r, tt.c, want, got)
		}
	}
}

func TestPipelineStrictDimensions(t *testing.T) {
	cfg := linearConfig()
	cfg.StrictDimensions = true
	p, err := NewPipeline(cfg, nil)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	if _, err := p.ProcessMosaic(uniformMosaic(5, 4, 100)); !errors.Is(err, ErrOddDimensions) {
		t.Errorf("Expected ErrOddDimensions, got %v", err)
	}

	cfg.StrictDimensions = false
	p, _ = NewPipeline(cfg, nil)
	res, err := p.ProcessMosaic(uniformMosaic(5, 4, 100))
	if err != nil {
		t.Fatalf("ProcessMosaic failed: %v", err)
	}
	if res.Output.Width != 4 {
		t.Errorf("Expected width 4, got %d", res.Output.Width)
	}
}

func TestPipelineWrapsStageErrors(t *testing.T) {
	p, _ := NewPipeline(linearConfig(), nil)
	_, err := p.Process(RawFrame{Width: 3, Height: 2, Stride: 6, Format: FormatPacked12, Data: make([]byte, 12)})
	if !errors.Is(err, ErrUnsupportedWidth) {
		t.Fatalf("Expected ErrUnsupportedWidth, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "unpacking frame:") {
		t.Errorf("Expected the unpacking stage in %q", err)
	}
}

func TestNewPipelineRejectsBadConfig(t *testing.T) {
	cfg := linearConfig()
	cfg.WhiteBalance[2] = 0
	if _, err := NewPipeline(cfg, nil); !errors.Is(err, ErrInvalidGain) {
		t.Errorf("Expected ErrInvalidGain, got %v", err)
	}
}

// TestPipelineLogsStages verifies every stage reports at debug level.
func TestPipelineLogsStages(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p, _ := NewPipeline(linearConfig(), logger)
	if _, err := p.Process(RawFrame{Width: 4, Height: 4, Stride: 8, Format: FormatPacked12, Data: packed4x4}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	for _, msg := range []string{"frame unpacked", "interpolated", "color corrected", "tone mapped"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("Expected log line %q in:\n%s", msg, buf.String())
		}
	}
}

// TestPipelineConcurrentUse verifies a pipeline can be shared between goroutines.
func TestPipelineConcurrentUse(t *testing.T) {
	cfg := linearConfig()
	cfg.Interpolation = StrategyWeightedConvolution
	p, _ := NewPipeline(cfg, nil)
	frame := RawFrame{Width: 4, Height: 4, Stride: 8, Format: FormatPacked12, Data: packed4x4}

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := p.Process(frame)
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Process failed: %v", err)
		}
	}
}
