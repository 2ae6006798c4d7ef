package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	rd "rawdemosaic/pkg/rawdemosaic"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	input     string
	synthetic bool
	width     int

	configPath string
	profile    string
	bayer      string
	strategy   string
	toneMap    string
	bitDepth   int
	blackLevel int
	gamma      float64

	exposure   int
	gain       float64
	focus      float64
	sharpness  float64
	outputDir  string
	outputPath string
	preview    string
	saveRaw    bool
	compress   bool
	logLevel   string
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	var o options
	fs := pflag.NewFlagSet("rawdemosaic", pflag.ContinueOnError)

	fs.StringVarP(&o.input, "input", "i", "", "raw input: .npy (with optional .yaml sidecar), .fits or a 16-bit mosaic .png/.tif")
	fs.BoolVar(&o.synthetic, "synthetic", false, "capture from the built-in synthetic sensor instead of reading --input")
	fs.IntVar(&o.width, "width", 0, "pixel width of a packed .npy capture without sidecar")

	fs.StringVarP(&o.configPath, "config", "c", "", "YAML pipeline configuration")
	fs.StringVar(&o.profile, "profile", string(rd.ProfileLinear), "default profile: linear or picamera")
	fs.StringVarP(&o.bayer, "bayer", "b", "", "bayer pattern: BGGR, RGGB, GBRG or GRBG")
	fs.StringVar(&o.strategy, "strategy", "", "interpolation: bilinear, weighted-convolution or opencv")
	fs.StringVar(&o.toneMap, "tone-map", "", "tone mapping: fixed-range or auto-stretch")
	fs.IntVar(&o.bitDepth, "bit-depth", 0, "output bit depth: 8 or 16")
	fs.IntVar(&o.blackLevel, "black-level", -1, "sensor black level")
	fs.Float64Var(&o.gamma, "gamma", 0, "gamma encoding exponent")

	fs.IntVarP(&o.exposure, "exposure", "e", 10000, "exposure time in microseconds")
	fs.Float64VarP(&o.gain, "analogue-gain", "a", 1.0, "analogue gain")
	fs.Float64VarP(&o.focus, "focus", "f", 0, "lens position")
	fs.Float64VarP(&o.sharpness, "sharpness", "s", 0, "sharpness")
	fs.StringVarP(&o.outputDir, "output-dir", "o", ".", "directory for saved raw captures")
	fs.StringVar(&o.outputPath, "out", "", "output image (.png, .tif, .bmp, .jpg); defaults to <input>_demosaiced.png")
	fs.StringVar(&o.preview, "preview", "", "write a captioned JPEG preview to this path")
	fs.BoolVar(&o.saveRaw, "save-raw", false, "save the untouched capture as .npy with a YAML sidecar")
	fs.BoolVar(&o.compress, "compress-raw", false, "zstd-compress saved raw captures (.npy.zst)")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return &o, fs, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

// buildConfig layers profile defaults, the config file and explicit flags.
func buildConfig(o *options, fs *pflag.FlagSet) (rd.Config, error) {
	cfg, err := rd.ProfileConfig(rd.Profile(o.profile))
	if err != nil {
		return rd.Config{}, err
	}
	if o.configPath != "" {
		if cfg, err = rd.LoadConfig(o.configPath, cfg); err != nil {
			return rd.Config{}, err
		}
	}
	if o.bayer != "" {
		if cfg.BayerPattern, err = rd.ParseBayerPattern(o.bayer); err != nil {
			return rd.Config{}, err
		}
	}
	if o.strategy != "" {
		if cfg.Interpolation, err = rd.ParseStrategy(o.strategy); err != nil {
			return rd.Config{}, err
		}
	}
	if o.toneMap != "" {
		if cfg.ToneMap, err = rd.ParseToneMapMode(o.toneMap); err != nil {
			return rd.Config{}, err
		}
	}
	if fs.Changed("bit-depth") {
		cfg.OutputBitDepth = o.bitDepth
	}
	if fs.Changed("black-level") {
		cfg.BlackLevel = o.blackLevel
	}
	if fs.Changed("gamma") {
		cfg.Gamma = o.gamma
	}
	return cfg, cfg.Validate()
}

func captureSettings(o *options, fs *pflag.FlagSet) rd.CaptureSettings {
	s := rd.CaptureSettings{ExposureMicros: o.exposure, AnalogueGain: o.gain}
	if fs.Changed("focus") {
		focus := o.focus
		s.Focus = &focus
	}
	if fs.Changed("sharpness") {
		sharpness := o.sharpness
		s.Sharpness = &sharpness
	}
	return s
}

func run(args []string) error {
	o, fs, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if !o.synthetic && o.input == "" {
		return fmt.Errorf("usage: rawdemosaic --input <raw-file> | --synthetic [flags]")
	}

	cfg, err := buildConfig(o, fs)
	if err != nil {
		return err
	}

	startTime := time.Now()
	frame, meta, err := acquireFrame(o, fs, &cfg)
	if err != nil {
		return err
	}
	logger.Info("rawdemosaic: frame loaded", "frame", frame.String(), "elapsed", time.Since(startTime))

	if o.saveRaw {
		if meta == nil {
			m := rd.NewFrameMetadata(frame, cfg.BayerPattern, nil)
			meta = &m
		}
		path, err := rd.SaveRaw(o.outputDir, frame, *meta, o.compress)
		if err != nil {
			return fmt.Errorf("saving raw capture: %w", err)
		}
		logger.Info("rawdemosaic: raw capture saved", "path", path, "id", meta.ID)
	}

	pipeline, err := rd.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	result, err := pipeline.Process(frame)
	if err != nil {
		return err
	}

	outPath := o.outputPath
	if outPath == "" {
		outPath = defaultOutputPath(o, meta)
	}
	if err := rd.WriteImage(outPath, result.Output); err != nil {
		return err
	}
	logger.Info("rawdemosaic: image written",
		"path", outPath, "width", result.Output.Width, "height", result.Output.Height,
		"bit_depth", result.Output.BitDepth, "strategy", cfg.Interpolation.String(),
		"elapsed", time.Since(startTime))

	if o.preview != "" {
		title := "Capture: " + captureLabel(o, meta)
		if err := rd.WritePreview(result.Output, title, o.preview); err != nil {
			return fmt.Errorf("writing preview: %w", err)
		}
		logger.Info("rawdemosaic: preview written", "path", o.preview)
	}
	return nil
}

// acquireFrame captures or loads the raw frame. A FITS BAYERPAT card or a
// sidecar pattern overrides the configured one unless --bayer was given.
func acquireFrame(o *options, fs *pflag.FlagSet, cfg *rd.Config) (rd.RawFrame, *rd.FrameMetadata, error) {
	if o.synthetic {
		camera := &rd.SyntheticCapturer{Width: 640, Height: 480, BlackLevel: cfg.BlackLevel}
		settings := captureSettings(o, fs)
		frame, err := rd.CaptureFrame(context.Background(), camera, settings)
		if err != nil {
			return rd.RawFrame{}, nil, err
		}
		meta := rd.NewFrameMetadata(frame, rd.BGGR, &settings)
		if !fs.Changed("bayer") {
			cfg.BayerPattern = rd.BGGR
		}
		return frame, &meta, nil
	}

	switch strings.ToLower(filepath.Ext(o.input)) {
	case ".npy", ".zst":
		return loadNPY(o, fs, cfg)
	case ".fits", ".fit", ".fts":
		frame, fitsMeta, err := rd.ReadFitsFrame(o.input)
		if err != nil {
			return rd.RawFrame{}, nil, fmt.Errorf("reading FITS: %w", err)
		}
		if p, ok := fitsMeta.BayerPattern(); ok && !fs.Changed("bayer") {
			cfg.BayerPattern = p
		}
		return frame, nil, nil
	default:
		frame, err := loadMosaicImage(o.input)
		return frame, nil, err
	}
}

func loadNPY(o *options, fs *pflag.FlagSet, cfg *rd.Config) (rd.RawFrame, *rd.FrameMetadata, error) {
	if o.width > 0 {
		arr, err := rd.ReadNPYFile(o.input)
		if err != nil {
			return rd.RawFrame{}, nil, err
		}
		meta := &rd.FrameMetadata{Width: o.width, Format: rd.FormatUnpacked16}
		if arr.ElemSize == 1 {
			meta.Format = rd.FormatPacked12
		}
		frame, err := rd.FrameFromNPY(arr, meta)
		return frame, nil, err
	}
	frame, meta, err := rd.LoadRaw(o.input)
	if err != nil {
		return rd.RawFrame{}, nil, err
	}
	if meta != nil && meta.BayerPattern != "" && !fs.Changed("bayer") {
		cfg.BayerPattern = meta.BayerPattern
	}
	return frame, meta, nil
}

func defaultOutputPath(o *options, meta *rd.FrameMetadata) string {
	if o.input != "" {
		return trimRawExt(o.input) + "_demosaiced.png"
	}
	return filepath.Join(o.outputDir, captureLabel(o, meta)+"_demosaiced.png")
}

func captureLabel(o *options, meta *rd.FrameMetadata) string {
	if meta != nil && !meta.CapturedAt.IsZero() {
		return meta.CapturedAt.Format("20060102_150405")
	}
	return filepath.Base(trimRawExt(o.input))
}

// trimRawExt strips the extension, including a trailing .zst.
func trimRawExt(path string) string {
	path = strings.TrimSuffix(path, ".zst")
	return strings.TrimSuffix(path, filepath.Ext(path))
}
