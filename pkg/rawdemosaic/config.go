package rawdemosaic

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxGain bounds white balance gains.
const maxGain = 16.0

// Config is the complete, validated parameter set threaded through the pipeline.
type Config struct {
	BlackLevel       int          `yaml:"black_level"`
	WhiteBalance     [3]float64   `yaml:"white_balance"`
	ColorMatrix      [][]float64  `yaml:"color_matrix,omitempty"`
	Gamma            float64      `yaml:"gamma"`
	BayerPattern     BayerPattern `yaml:"bayer_pattern"`
	Interpolation    Strategy     `yaml:"interpolation"`
	ToneMap          ToneMapMode  `yaml:"tone_map"`
	OutputBitDepth   int          `yaml:"output_bit_depth"`
	MaxSensorCode    int          `yaml:"max_sensor_code"`
	Border           BorderMode   `yaml:"border"`
	StrictDimensions bool         `yaml:"strict_dimensions"` // fail on odd mosaic sizes instead of truncating
}

// Profile names a set of defaults.
type Profile string

const (
	// ProfileLinear keeps the sensor scale: no black offset, no gamma.
	ProfileLinear Profile = "linear"
	// ProfilePiCamera matches a Raspberry Pi HQ camera preview: black 256, gamma 2.2.
	ProfilePiCamera Profile = "picamera"
)

// DefaultConfig returns the linear profile.
func DefaultConfig() Config {
	return Config{
		BlackLevel:     0,
		WhiteBalance:   DefaultWhiteBalance,
		Gamma:          1.0,
		BayerPattern:   BGGR,
		Interpolation:  StrategyBilinear,
		ToneMap:        ToneMapFixedRange,
		OutputBitDepth: 8,
		MaxSensorCode:  MaxSensorCode12,
		Border:         BorderReflect,
	}
}

// ProfileConfig returns the defaults of a named profile.
func ProfileConfig(p Profile) (Config, error) {
	cfg := DefaultConfig()
	switch Profile(strings.ToLower(string(p))) {
	case ProfileLinear, "":
	case ProfilePiCamera:
		cfg.BlackLevel = 256
		cfg.Gamma = 2.2
	default:
		return Config{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidConfiguration, string(p))
	}
	return cfg, nil
}

// Validate checks every field. It does not modify c.
func (c Config) Validate() error {
	if c.MaxSensorCode <= 0 || c.MaxSensorCode > math.MaxUint16 {
		return fmt.Errorf("%w: max_sensor_code %d", ErrInvalidParameter, c.MaxSensorCode)
	}
	if c.BlackLevel < 0 || c.BlackLevel >= c.MaxSensorCode {
		return fmt.Errorf("%w: black_level %d must be in [0, %d)", ErrInvalidParameter, c.BlackLevel, c.MaxSensorCode)
	}
	for i, g := range c.WhiteBalance {
		if math.IsNaN(g) || g <= 0 || g > maxGain {
			return fmt.Errorf("%w: white_balance[%d] = %v, want (0, %v]", ErrInvalidGain, i, g, maxGain)
		}
	}
	if c.ColorMatrix != nil {
		if _, err := NewColorMatrix(c.ColorMatrix); err != nil {
			return err
		}
	}
	if !(c.Gamma > 0) || math.IsInf(c.Gamma, 0) {
		return fmt.Errorf("%w: gamma %v must be positive", ErrInvalidParameter, c.Gamma)
	}
	if _, err := c.BayerPattern.Layout(); err != nil {
		return err
	}
	switch c.Interpolation {
	case StrategyBilinear, StrategyWeightedConvolution:
	case StrategyOpenCV:
		if Backend != "opencv" {
			return fmt.Errorf("%w: interpolation %s is not available with the %s backend", ErrInvalidConfiguration, c.Interpolation, Backend)
		}
	default:
		return fmt.Errorf("%w: interpolation %d", ErrInvalidConfiguration, int(c.Interpolation))
	}
	switch c.ToneMap {
	case ToneMapFixedRange, ToneMapAutoStretch:
	default:
		return fmt.Errorf("%w: tone_map %d", ErrInvalidConfiguration, int(c.ToneMap))
	}
	if c.OutputBitDepth != 8 && c.OutputBitDepth != 16 {
		return fmt.Errorf("%w: output_bit_depth %d, want 8 or 16", ErrInvalidParameter, c.OutputBitDepth)
	}
	switch c.Border {
	case BorderReflect, BorderReflect101, BorderReplicate:
	default:
		return fmt.Errorf("%w: border %d", ErrInvalidConfiguration, int(c.Border))
	}
	return nil
}

// Matrix returns the configured color matrix, or nil when none is set.
func (c Config) Matrix() (*ColorMatrix, error) {
	if c.ColorMatrix == nil {
		return nil, nil
	}
	m, err := NewColorMatrix(c.ColorMatrix)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c Config) toneMapParams() ToneMapParams {
	return ToneMapParams{
		Mode:          c.ToneMap,
		Gamma:         c.Gamma,
		MaxSensorCode: c.MaxSensorCode,
		BlackLevel:    c.BlackLevel,
		BitDepth:      c.OutputBitDepth,
	}
}

// ParseConfig decodes YAML on top of base and validates the result.
// Fields absent from the document keep their base values.
func ParseConfig(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file on top of base.
func LoadConfig(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data, base)
}
