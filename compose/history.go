package compose

import (
	"image"
	"time"

	"progif/formats"
)

const (
	// MinDelay replaces a graphic control delay of zero.
	MinDelay = 100 * time.Millisecond

	// DefaultDelay is the delay of an image without a graphic control.
	DefaultDelay = time.Second / 60
)

// History remembers the two most recently emitted frames, enough to resolve
// every disposal method.
type History struct {
	last  *image.RGBA
	prior *image.RGBA
}

// Push records an emitted frame.
func (h *History) Push(frame *image.RGBA) {
	h.prior, h.last = h.last, frame
}

// Baseline returns the frame the next one is drawn over, given the disposal
// method of the most recent frame. A nil result means a fresh canvas.
func (h *History) Baseline(d formats.Disposal) *image.RGBA {
	switch d {
	case formats.DisposalBackground:
		return nil
	case formats.DisposalPrevious:
		return h.prior
	default:
		return h.last
	}
}

// Reset forgets all frames.
func (h *History) Reset() {
	h.last, h.prior = nil, nil
}

// Disposal returns the disposal method of an image. Images without a graphic
// control are treated as restore-to-background.
func Disposal(gc *formats.GraphicControl) formats.Disposal {
	if gc == nil {
		return formats.DisposalBackground
	}
	return gc.Disposal
}

// Delay returns how long an image stays on screen.
func Delay(gc *formats.GraphicControl) time.Duration {
	if gc == nil {
		return DefaultDelay
	}
	if gc.DelayTime == 0 {
		return MinDelay
	}
	return time.Duration(gc.DelayTime) * 10 * time.Millisecond
}
