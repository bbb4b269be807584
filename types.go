package progif

import (
	"image"
	"log/slog"
	"time"
)

// Mode selects which image blocks a Decoder emits.
type Mode int

const (
	// ModeFull emits every image block in order.
	ModeFull Mode = iota
	// ModePreview emits an evenly spaced subset of Options.MaxFrames blocks
	// and stretches their delays to keep the playback length.
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "full"
}

// Filter is the sampling hint attached to emitted frames.
type Filter int

const (
	FilterPoint Filter = iota
	FilterBilinear
	FilterTrilinear
)

func (f Filter) String() string {
	switch f {
	case FilterBilinear:
		return "bilinear"
	case FilterTrilinear:
		return "trilinear"
	default:
		return "point"
	}
}

// Wrap is the texture addressing hint attached to emitted frames.
type Wrap int

const (
	WrapClamp Wrap = iota
	WrapRepeat
	WrapMirror
)

func (w Wrap) String() string {
	switch w {
	case WrapRepeat:
		return "repeat"
	case WrapMirror:
		return "mirror"
	default:
		return "clamp"
	}
}

// Options configures a decode. The zero value decodes every frame without
// logging.
type Options struct {
	Mode Mode

	// MaxFrames is the number of frames emitted in ModePreview. Values <= 0
	// or above the frame count select every frame.
	MaxFrames int

	Filter Filter
	Wrap   Wrap

	// Logger receives anomaly warnings and per-frame debug records. Nil
	// disables logging.
	Logger *slog.Logger
}

// Frame is one fully composited animation frame.
type Frame struct {
	// Image is the canvas-sized frame with rows stored top-down.
	Image *image.RGBA

	// Delay is how long the frame stays on screen.
	Delay time.Duration

	// Index is the image block the frame was drawn from.
	Index int

	Filter Filter
	Wrap   Wrap
}

// Result is a completed decode.
type Result struct {
	Frames    []Frame
	LoopCount int
	Width     int
	Height    int
	Anomalies []DecodeAnomaly
}

// ImageMetadata summarizes a GIF stream without decoding its frames.
type ImageMetadata struct {
	Format          string                 `json:"format"`
	Width           int                    `json:"width"`
	Height          int                    `json:"height"`
	FileSize        int64                  `json:"fileSize"`
	ColorDepth      int                    `json:"colorDepth"`
	ColorSpace      string                 `json:"colorSpace"`
	FrameCount      int                    `json:"frameCount"`
	LoopCount       int                    `json:"loopCount"`
	Looping         bool                   `json:"looping"` // a loop extension is present
	Duration        time.Duration          `json:"duration"`
	HasTransparency bool                   `json:"hasTransparency"`
	Comments        []string               `json:"comments,omitempty"`
	Additional      map[string]interface{} `json:"additional,omitempty"`
}
