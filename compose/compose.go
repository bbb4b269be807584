// Package compose reconstructs full-canvas RGBA frames from decoded GIF
// image blocks.
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"progif/formats"
)

var (
	// ErrColorIndex reports pixel indices beyond the active color table.
	ErrColorIndex = errors.New("compose: color index out of range")

	// ErrNoColorTable reports an image with neither a local nor a global table.
	ErrNoColorTable = errors.New("compose: no color table")
)

// Params describes one image block to draw onto the canvas.
type Params struct {
	Width, Height int // logical screen size

	Image   *formats.ImageBlock
	Indices []byte // color indices in natural row order
	Table   formats.ColorTable
	Control *formats.GraphicControl // nil when the image has none

	Background    color.RGBA
	HasBackground bool
}

// NewParams collects the inputs for drawing image i of doc. indices must be in
// natural row order.
func NewParams(doc *formats.Document, i int, indices []byte) Params {
	img := doc.Images[i]
	bg, ok := Background(doc, img)
	return Params{
		Width:         int(doc.Width),
		Height:        int(doc.Height),
		Image:         img,
		Indices:       indices,
		Table:         ActiveTable(doc, img),
		Control:       img.Control,
		Background:    bg,
		HasBackground: ok,
	}
}

// ActiveTable returns the local color table of img, or the global table.
func ActiveTable(doc *formats.Document, img *formats.ImageBlock) formats.ColorTable {
	if img.LocalColorTableFlag && len(img.LocalColorTable) > 0 {
		return img.LocalColorTable
	}
	return doc.GlobalColorTable
}

// Background resolves the background color for img. The global table entry
// at the background index is used; an image with a local table takes the
// local entry instead, or the last local entry when the index overflows it.
func Background(doc *formats.Document, img *formats.ImageBlock) (color.RGBA, bool) {
	idx := int(doc.BackgroundIndex)
	if img != nil && img.LocalColorTableFlag && len(img.LocalColorTable) > 0 {
		local := img.LocalColorTable
		if idx >= len(local) {
			idx = len(local) - 1
		}
		return local.RGBA(idx)
	}
	return doc.GlobalColorTable.RGBA(idx)
}

// Compose draws p over baseline and returns a new canvas. The canvas starts
// as a copy of baseline; with no baseline it is filled with the background
// color when one is known, otherwise left zeroed. baseline is not modified.
//
// Pixels equal to the transparent index keep the canvas value. Indices beyond
// the color table are skipped and reported once. Drawn pixels are opaque.
func Compose(baseline *image.RGBA, p Params) (*image.RGBA, []error) {
	dst := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	switch {
	case baseline != nil:
		draw.Draw(dst, dst.Bounds(), baseline, image.Point{}, draw.Src)
	case p.HasBackground:
		fill(dst, p.Background)
	}

	img := p.Image
	if img == nil {
		return dst, nil
	}
	if len(p.Table) == 0 {
		return dst, []error{ErrNoColorTable}
	}

	transparent := -1
	if p.Control != nil && p.Control.TransparentFlag {
		transparent = int(p.Control.TransparentIndex)
	}

	w, h := int(img.Width), int(img.Height)
	left, top := int(img.Left), int(img.Top)
	overrun := 0
	for y := 0; y < h; y++ {
		cy := top + y
		if cy >= p.Height || (y+1)*w > len(p.Indices) {
			break
		}
		row := p.Indices[y*w : (y+1)*w]
		for x, idx := range row {
			cx := left + x
			if cx >= p.Width {
				break
			}
			if int(idx) == transparent {
				continue
			}
			if int(idx) >= len(p.Table) {
				overrun++
				continue
			}
			c := p.Table[idx]
			o := dst.PixOffset(cx, cy)
			px := dst.Pix[o : o+4 : o+4]
			px[0], px[1], px[2], px[3] = c.R, c.G, c.B, 0xFF
		}
	}

	if overrun > 0 {
		return dst, []error{fmt.Errorf("%w: %d pixels beyond a %d-entry table", ErrColorIndex, overrun, len(p.Table))}
	}
	return dst, nil
}

func fill(dst *image.RGBA, c color.RGBA) {
	pix := dst.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
}
