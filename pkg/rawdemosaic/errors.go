package rawdemosaic

import (
	"errors"
	"fmt"
)

// Error classes. Every specific error below wraps exactly one of these, so
// callers can branch with errors.Is on either level.
var (
	ErrInputValidation      = errors.New("rawdemosaic: input validation")
	ErrInvalidConfiguration = errors.New("rawdemosaic: invalid configuration")
	ErrComputation          = errors.New("rawdemosaic: computation")
)

var (
	ErrInvalidFrame     = fmt.Errorf("%w: invalid frame", ErrInputValidation)
	ErrUnsupportedWidth = fmt.Errorf("%w: unsupported width", ErrInputValidation)
	ErrOddDimensions    = fmt.Errorf("%w: odd mosaic dimensions", ErrInputValidation)

	ErrInvalidChannelCount = fmt.Errorf("%w: invalid bayer channel count", ErrInvalidConfiguration)
	ErrInvalidColorMatrix  = fmt.Errorf("%w: color matrix must be 3x3", ErrInvalidConfiguration)
	ErrInvalidGain         = fmt.Errorf("%w: white balance gain out of range", ErrInvalidConfiguration)
	ErrInvalidParameter    = fmt.Errorf("%w: parameter out of range", ErrInvalidConfiguration)

	ErrEmptyImage = fmt.Errorf("%w: empty image", ErrComputation)
)
