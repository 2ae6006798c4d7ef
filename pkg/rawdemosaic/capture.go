package rawdemosaic

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// CaptureSettings are the sensor controls applied to a single still capture.
type CaptureSettings struct {
	ExposureMicros int      `yaml:"exposure_us"`
	AnalogueGain   float64  `yaml:"analogue_gain"`
	Focus          *float64 `yaml:"focus,omitempty"`     // lens position; nil keeps autofocus
	Sharpness      *float64 `yaml:"sharpness,omitempty"` // nil keeps the camera default
}

// DefaultCaptureSettings returns a 10 ms exposure at unity gain.
func DefaultCaptureSettings() CaptureSettings {
	return CaptureSettings{ExposureMicros: 10000, AnalogueGain: 1.0}
}

// Validate rejects non-positive exposure or gain.
func (s CaptureSettings) Validate() error {
	if s.ExposureMicros <= 0 {
		return fmt.Errorf("%w: exposure %dus", ErrInvalidParameter, s.ExposureMicros)
	}
	if !(s.AnalogueGain > 0) {
		return fmt.Errorf("%w: analogue gain %v", ErrInvalidParameter, s.AnalogueGain)
	}
	return nil
}

// Capturer is a camera session. Capture is only valid between Start and Stop.
type Capturer interface {
	Start(ctx context.Context) error
	Capture(ctx context.Context, s CaptureSettings) (RawFrame, error)
	Stop() error
}

// CaptureFrame runs one start/capture/stop cycle. The session is stopped
// before CaptureFrame returns, also when the capture fails.
func CaptureFrame(ctx context.Context, c Capturer, s CaptureSettings) (frame RawFrame, err error) {
	if err := s.Validate(); err != nil {
		return RawFrame{}, err
	}
	if err := c.Start(ctx); err != nil {
		return RawFrame{}, fmt.Errorf("starting capture: %w", err)
	}
	defer func() {
		if stopErr := c.Stop(); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("stopping capture: %w", stopErr))
		}
	}()

	frame, err = c.Capture(ctx, s)
	if err != nil {
		return RawFrame{}, fmt.Errorf("capturing frame: %w", err)
	}
	return frame, nil
}

// ErrSessionNotStarted is returned by SyntheticCapturer.Capture outside a session.
var ErrSessionNotStarted = errors.New("rawdemosaic: capture session not started")

// SyntheticCapturer produces packed 12-bit BGGR test charts: a horizontal
// ramp scaled by exposure and gain, over a constant black level.
type SyntheticCapturer struct {
	Width      int
	Height     int
	Stride     int // 0 selects the payload size rounded up to 32 bytes
	BlackLevel int

	mu      sync.Mutex
	running bool
	starts  int
	stops   int
}

func (s *SyntheticCapturer) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.starts++
	return nil
}

func (s *SyntheticCapturer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.stops++
	return nil
}

// Sessions reports how many times the session was started and stopped.
func (s *SyntheticCapturer) Sessions() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

func (s *SyntheticCapturer) Capture(ctx context.Context, cs CaptureSettings) (RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return RawFrame{}, err
	}
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return RawFrame{}, ErrSessionNotStarted
	}

	stride := s.Stride
	if stride == 0 {
		stride = (s.Width*3/2 + 31) &^ 31
	}
	m := NewMosaicPlane(s.Width, s.Height)
	exposure := float64(cs.ExposureMicros) / 10000 * cs.AnalogueGain
	layout, _ := BGGR.Layout()
	channelGain := map[byte]float64{'R': 0.5, 'G': 1.0, 'B': 0.7}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			ramp := float64(x) / float64(max(s.Width-1, 1))
			v := float64(s.BlackLevel) + ramp*exposure*channelGain[layout.Color(y, x)]*float64(MaxSensorCode12-s.BlackLevel)
			m.Pix[y*s.Width+x] = uint16(min(max(v, 0), MaxSensorCode12))
		}
	}
	data, err := PackPacked12(m, stride)
	if err != nil {
		return RawFrame{}, err
	}
	return RawFrame{Width: s.Width, Height: s.Height, Stride: stride, Format: FormatPacked12, Data: data}, nil
}
