package formats

import (
	"encoding/binary"
	"image/color"
	"log/slog"
)

// Supported GIF versions.
const (
	Version87a = "87a"
	Version89a = "89a"
)

// Block introducers and extension labels.
const (
	introducerExtension = 0x21
	introducerImage     = 0x2C
	introducerTrailer   = 0x3B

	labelPlainText      = 0x01
	labelGraphicControl = 0xF9
	labelComment        = 0xFE
	labelApplication    = 0xFF

	graphicControlSize = 0x04
	plainTextSize      = 0x0C
	applicationSize    = 0x0B
)

/*
Logical screen descriptor packed field {
	0-2: GlobalColorTableSize
	  3: SortFlag
	4-6: ColorResolution
	  7: GlobalColorTableFlag
}
*/

// colorResolution maps bits 4-6 of the screen descriptor to bits per primary.
var colorResolution = [8]int{1, 2, 3, 4, 5, 6, 7, 8}

// colorTableLen returns the number of entries announced by the low three
// bits of a packed field.
func colorTableLen(packed byte) int {
	return 1 << (int(packed&0x07) + 1)
}

// RGB is one color table entry.
type RGB struct {
	R, G, B uint8
}

// ColorTable is a global or local color table. Its length is a power of two
// between 2 and 256.
type ColorTable []RGB

// RGBA returns entry i as an opaque color, or false if i is out of range.
func (t ColorTable) RGBA(i int) (color.RGBA, bool) {
	if i < 0 || i >= len(t) {
		return color.RGBA{}, false
	}
	c := t[i]
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}, true
}

// Palette converts the table to a color.Palette.
func (t ColorTable) Palette() color.Palette {
	p := make(color.Palette, len(t))
	for i, c := range t {
		p[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
	}
	return p
}

// Disposal is the graphic control disposal method.
type Disposal uint8

const (
	DisposalUnspecified Disposal = iota // no disposal specified
	DisposalNone                        // do not dispose
	DisposalBackground                  // restore to background color
	DisposalPrevious                    // restore to previous
)

func (d Disposal) String() string {
	switch d {
	case DisposalNone:
		return "none"
	case DisposalBackground:
		return "background"
	case DisposalPrevious:
		return "previous"
	default:
		return "unspecified"
	}
}

// disposalFromPacked decodes bits 2-4 of the graphic control packed field.
// Reserved values fall back to DisposalUnspecified.
func disposalFromPacked(packed byte) Disposal {
	switch packed & 0x1C {
	case 0x04:
		return DisposalNone
	case 0x08:
		return DisposalBackground
	case 0x0C:
		return DisposalPrevious
	default:
		return DisposalUnspecified
	}
}

// Block is one typed entry of the GIF block stream.
type Block interface {
	block()
}

/*
Image descriptor packed field {
	0-2: LocalColorTableSize
	3-4: Reserved
	  5: SortFlag
	  6: InterlaceFlag
	  7: LocalColorTableFlag
}
*/

// ImageBlock is an image descriptor with its optional local color table and
// the concatenated LZW sub-block payload.
type ImageBlock struct {
	Left   uint16 // X position of image
	Top    uint16 // Y position of image
	Width  uint16 // width of image in pixels
	Height uint16 // height of image in pixels

	LocalColorTableFlag bool
	Interlaced          bool
	SortFlag            bool
	LocalColorTable     ColorTable

	MinCodeSize uint8
	Data        []byte

	// Control is the graphic control extension that preceded this image,
	// or nil.
	Control *GraphicControl

	// Truncated is set when the buffer ended before the block terminator.
	Truncated bool
}

// PixelCount is the number of indices the image data must decode to.
func (b *ImageBlock) PixelCount() int {
	return int(b.Width) * int(b.Height)
}

/*
Graphic control packed field {
	  0: TransparentColorFlag
	  1: UserInputFlag
	2-4: DisposalMethod
	5-7: Reserved
}
*/

// GraphicControl carries the timing, disposal and transparency of the image
// that follows it.
type GraphicControl struct {
	Disposal         Disposal
	UserInput        bool
	TransparentFlag  bool
	TransparentIndex uint8
	DelayTime        uint16 // hundredths of a second
}

// CommentExtension holds the text of a comment extension.
type CommentExtension struct {
	Text string
}

// PlainTextExtension holds a plain text extension. The text is kept but never
// rendered.
type PlainTextExtension struct {
	GridLeft        uint16
	GridTop         uint16
	GridWidth       uint16
	GridHeight      uint16
	CellWidth       uint8
	CellHeight      uint8
	ForegroundIndex uint8
	BackgroundIndex uint8
	Text            string
}

// ApplicationExtension holds an application extension such as NETSCAPE2.0.
type ApplicationExtension struct {
	Identifier string // 8 bytes
	AuthCode   string // 3 bytes
	SubBlocks  [][]byte
}

// LoopCount returns the animation loop count carried by a NETSCAPE2.0 or
// ANIMEXTS1.0 loop sub-block. The boolean is false when the extension is not
// a loop extension.
func (a *ApplicationExtension) LoopCount() (int, bool) {
	if a.Identifier != "NETSCAPE" && a.Identifier != "ANIMEXTS" {
		return 0, false
	}
	if len(a.SubBlocks) == 0 {
		return 0, false
	}
	sb := a.SubBlocks[0]
	if len(sb) < 3 || sb[0] != 0x01 {
		return 0, false
	}
	return int(binary.LittleEndian.Uint16(sb[1:3])), true
}

// UnknownExtension keeps an extension whose label is not recognized.
type UnknownExtension struct {
	Label     byte
	SubBlocks [][]byte
}

func (*ImageBlock) block()           {}
func (*GraphicControl) block()       {}
func (*CommentExtension) block()     {}
func (*PlainTextExtension) block()   {}
func (*ApplicationExtension) block() {}
func (*UnknownExtension) block()     {}

// Document is a parsed GIF stream.
type Document struct {
	Version string // "87a" or "89a"

	// Logical Screen Descriptor
	Width                uint16
	Height               uint16
	GlobalColorTableFlag bool
	ColorResolution      int
	SortFlag             bool
	BackgroundIndex      uint8
	PixelAspectRatio     uint8
	GlobalColorTable     ColorTable

	// Blocks is the full stream in order of occurrence. The typed slices
	// below point at the same values.
	Blocks []Block

	Images          []*ImageBlock
	GraphicControls []*GraphicControl
	Applications    []*ApplicationExtension
	Comments        []*CommentExtension
	PlainTexts      []*PlainTextExtension
	Unknown         []*UnknownExtension

	// Trailer is false when the stream ended without a trailer block.
	Trailer bool

	// Warnings lists non-fatal problems found while parsing.
	Warnings []error

	// pending is the last graphic control not yet claimed by an image.
	pending *GraphicControl
}

// GraphicControlFor returns the graphic control that applies to image i, or
// nil when the image has none.
func (d *Document) GraphicControlFor(i int) *GraphicControl {
	if i < 0 || i >= len(d.Images) {
		return nil
	}
	return d.Images[i].Control
}

// LoopCount returns the loop count of the first loop application extension;
// 0 when there is none.
func (d *Document) LoopCount() int {
	n, _ := d.Loop()
	return n
}

// Loop returns the loop count of the first loop application extension. The
// boolean is false when the stream has none and plays once.
func (d *Document) Loop() (int, bool) {
	for _, app := range d.Applications {
		if n, ok := app.LoopCount(); ok {
			return n, true
		}
	}
	return 0, false
}

// HasTransparency reports whether any graphic control sets a transparent index.
func (d *Document) HasTransparency() bool {
	for _, gc := range d.GraphicControls {
		if gc.TransparentFlag {
			return true
		}
	}
	return false
}

// LogValue summarizes the document for structured logging.
func (d *Document) LogValue() slog.Value {
	delays := make([]int, len(d.GraphicControls))
	for i, gc := range d.GraphicControls {
		delays[i] = int(gc.DelayTime)
	}
	attrs := []slog.Attr{
		slog.String("version", "GIF"+d.Version),
		slog.Int("width", int(d.Width)),
		slog.Int("height", int(d.Height)),
		slog.Int("images", len(d.Images)),
		slog.Int("loop", d.LoopCount()),
		slog.Any("delays", delays),
	}
	for _, app := range d.Applications {
		attrs = append(attrs, slog.String("application", app.Identifier+app.AuthCode))
	}
	return slog.GroupValue(attrs...)
}

func (d *Document) warn(err error) {
	d.Warnings = append(d.Warnings, err)
}
