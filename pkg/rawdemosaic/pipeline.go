package rawdemosaic

import (
	"fmt"
	"log/slog"
	"time"
)

// Pipeline converts raw frames to RGB images with one fixed configuration.
// It holds no per-frame state and may be shared between goroutines.
type Pipeline struct {
	cfg    Config
	matrix *ColorMatrix
	log    *slog.Logger
}

// Result holds the output and every intermediate stage of one frame.
type Result struct {
	Mosaic    MosaicPlane
	Planes    ChannelPlanes
	Corrected RGBImage
	Output    OutputImage
}

// NewPipeline validates cfg. A nil logger falls back to slog.Default().
func NewPipeline(cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := cfg.Matrix()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, matrix: m, log: logger}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Process runs a raw frame through every stage.
func (p *Pipeline) Process(frame RawFrame) (*Result, error) {
	start := time.Now()
	mosaic, err := Unpack(frame)
	if err != nil {
		return nil, fmt.Errorf("unpacking frame: %w", err)
	}
	p.log.Debug("rawdemosaic: frame unpacked",
		"width", mosaic.Width, "height", mosaic.Height, "format", frame.Format.String(),
		"elapsed", time.Since(start))

	return p.ProcessMosaic(mosaic)
}

// ProcessMosaic runs an already unpacked mosaic through interpolation,
// correction and tone mapping.
func (p *Pipeline) ProcessMosaic(mosaic MosaicPlane) (*Result, error) {
	if p.cfg.StrictDimensions && (mosaic.Width%2 != 0 || mosaic.Height%2 != 0) {
		return nil, fmt.Errorf("%w: %dx%d", ErrOddDimensions, mosaic.Width, mosaic.Height)
	}

	stageStart := time.Now()
	planes, err := Interpolate(p.cfg.Interpolation, mosaic, p.cfg.BayerPattern, p.cfg.BlackLevel, p.cfg.MaxSensorCode, p.cfg.Border)
	if err != nil {
		return nil, fmt.Errorf("interpolating: %w", err)
	}
	p.log.Debug("rawdemosaic: interpolated",
		"strategy", p.cfg.Interpolation.String(), "backend", Backend,
		"width", planes.Width(), "height", planes.Height(), "elapsed", time.Since(stageStart))

	stageStart = time.Now()
	corrected, err := Correct(planes, p.cfg.WhiteBalance, p.matrix)
	if err != nil {
		return nil, fmt.Errorf("color correction: %w", err)
	}
	p.log.Debug("rawdemosaic: color corrected",
		"white_balance", p.cfg.WhiteBalance, "color_matrix", p.matrix != nil, "elapsed", time.Since(stageStart))

	stageStart = time.Now()
	out, err := ToneMap(corrected, p.cfg.toneMapParams())
	if err != nil {
		return nil, fmt.Errorf("tone mapping: %w", err)
	}
	p.log.Debug("rawdemosaic: tone mapped",
		"mode", p.cfg.ToneMap.String(), "gamma", p.cfg.Gamma, "bit_depth", out.BitDepth, "elapsed", time.Since(stageStart))

	return &Result{Mosaic: mosaic, Planes: planes, Corrected: corrected, Output: out}, nil
}
