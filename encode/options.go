// Package encode writes animated GIF streams from RGBA frames.
package encode

import (
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrNoFrames is returned when an animation has no frames.
	ErrNoFrames = errors.New("encode: no frames")

	// ErrClosed is returned when adding frames to a closed encoder.
	ErrClosed = errors.New("encode: encoder closed")

	// ErrFrameBounds is returned for a paletted frame outside the canvas.
	ErrFrameBounds = errors.New("encode: frame outside canvas")
)

// Resize selects how frames of another size are fitted to the canvas.
type Resize int

const (
	// ResizeStretch scales a frame to the canvas size.
	ResizeStretch Resize = iota
	// ResizeKeepRatio scales a frame to fit and centers it on a black canvas.
	ResizeKeepRatio
)

// Options configures an encode. The zero value loops forever, uses the
// default quality and writes frames without delay.
type Options struct {
	// Repeat is the loop count: -1 plays once, 0 loops forever, n > 0
	// repeats n times.
	Repeat int

	// Quality is the pixel sampling interval for palette building, 1 (best)
	// to 100. Zero selects DefaultQuality.
	Quality int

	// Delay is the display time of every frame, rounded down to 10ms.
	Delay time.Duration

	// Dispose is the disposal method written for every frame, 0-3.
	Dispose int

	// Dither enables Floyd-Steinberg error diffusion when mapping to the
	// palette.
	Dither bool

	Resize Resize

	// Logger receives worker progress. Nil disables logging.
	Logger *slog.Logger
}

// DefaultQuality is the sampling interval used when Options.Quality is zero.
const DefaultQuality = 10

func (o *Options) quality() int {
	switch {
	case o.Quality <= 0:
		return DefaultQuality
	case o.Quality > 100:
		return 100
	default:
		return o.Quality
	}
}

// delay returns the delay in hundredths of a second.
func (o *Options) delay() uint16 {
	cs := o.Delay / (10 * time.Millisecond)
	if cs < 0 {
		return 0
	}
	if cs > 0xFFFF {
		return 0xFFFF
	}
	return uint16(cs)
}
